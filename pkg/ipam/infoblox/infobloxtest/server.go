// Package infobloxtest provides an in-memory Infoblox WAPI for tests.
package infobloxtest

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
)

const (
	TestUsername   = "admin"
	TestPassword   = "infoblox"
	TestAPIVersion = "v2.7"

	hostRecordObject = "record:host"
)

// TestServer is an in-memory WAPI serving record:host objects, with
// next-available-IP allocation done server side like the real appliance.
type TestServer struct {
	*httptest.Server

	mu         sync.Mutex
	seq        int
	records    map[string]hostRecord
	order      []string
	requests   []string
	failDelete map[string]int
}

// NewTestServer starts a TLS WAPI fake. The caller closes it.
func NewTestServer() *TestServer {
	s := &TestServer{
		records:    map[string]hostRecord{},
		failDelete: map[string]int{},
	}
	s.Server = httptest.NewUnstartedServer(http.HandlerFunc(s.serve))
	s.StartTLS()
	return s
}

// InitTestServer starts a TLS WAPI fake which is closed with the test.
func InitTestServer(t testing.TB) *TestServer {
	s := NewTestServer()
	t.Cleanup(s.Close)
	return s
}

// IpamConfig returns a configuration pointing at the fake. Certificate
// verification stays off since the fake uses a self-signed certificate.
func (s *TestServer) IpamConfig() ipam.Config {
	return ipam.Config{
		Type:       ipam.IpamTypeInfoblox,
		Server:     strings.TrimPrefix(s.URL, "https://"),
		APIVersion: TestAPIVersion,
		Username:   TestUsername,
		Password:   TestPassword,
	}
}

// AddHost stores a host record with concrete addresses and returns its reference.
func (s *TestServer) AddHost(name string, addrs ...string) ipam.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := hostRecord{Name: name}
	for _, a := range addrs {
		r.IPv4Addrs = append(r.IPv4Addrs, ipv4Addr{IPv4Addr: a, Host: name})
	}
	return ipam.Reference(s.store(r))
}

// FailDelete makes every DELETE of ref answer with the given status.
func (s *TestServer) FailDelete(ref ipam.Reference, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete[string(ref)] = status
}

// Requests lists every request received as "METHOD path".
func (s *TestServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.requests...)
}

// Hosts returns the stored records named name.
func (s *TestServer) Hosts(name string) []ipam.HostRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toIpamHostRecords(s.find(name))
}

func (s *TestServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := "/wapi/" + TestAPIVersion + "/"
	path := strings.TrimPrefix(r.URL.Path, prefix)
	s.requests = append(s.requests, r.Method+" "+path)

	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusNotFound, "Unknown WAPI version")
		return
	}
	if u, p, ok := r.BasicAuth(); !ok || u != TestUsername || p != TestPassword {
		writeError(w, http.StatusUnauthorized, "Authorization Required")
		return
	}

	switch {
	case r.Method == http.MethodPost && path == hostRecordObject:
		s.create(w, r)
	case r.Method == http.MethodGet && path == hostRecordObject:
		writeJSON(w, http.StatusOK, withDefaultFields(s.find(r.URL.Query().Get("name"))...))
	case r.Method == http.MethodGet:
		rec, ok := s.records[path]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Reference %s not found", path))
			return
		}
		writeJSON(w, http.StatusOK, withDefaultFields(rec)[0])
	case r.Method == http.MethodDelete:
		if status, ok := s.failDelete[path]; ok {
			writeError(w, status, fmt.Sprintf("Cannot delete %s", path))
			return
		}
		if _, ok := s.records[path]; !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Reference %s not found", path))
			return
		}
		delete(s.records, path)
		writeJSON(w, http.StatusOK, path)
	default:
		writeError(w, http.StatusBadRequest, "Unsupported request")
	}
}

func (s *TestServer) create(w http.ResponseWriter, r *http.Request) {
	rec := hostRecord{}
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rec.Name == "" || len(rec.IPv4Addrs) == 0 {
		writeError(w, http.StatusBadRequest, "field for create missing: name or ipv4addrs")
		return
	}

	for i, a := range rec.IPv4Addrs {
		if cidr := strings.TrimPrefix(a.IPv4Addr, "func:nextavailableip:"); cidr != a.IPv4Addr {
			ip, err := s.nextAvailable(cidr)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			rec.IPv4Addrs[i].IPv4Addr = ip
		}
		rec.IPv4Addrs[i].Host = rec.Name
	}

	writeJSON(w, http.StatusCreated, s.store(rec))
}

func (s *TestServer) store(rec hostRecord) string {
	s.seq++
	id := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("dns.host$.%d.%s", s.seq, rec.Name)))
	rec.Ref = fmt.Sprintf("%s/%s:%s/default", hostRecordObject, id, rec.Name)
	for i := range rec.IPv4Addrs {
		rec.IPv4Addrs[i].Ref = fmt.Sprintf("record:host_ipv4addr/%s:%s/%s", id, rec.IPv4Addrs[i].IPv4Addr, rec.Name)
	}
	s.records[rec.Ref] = rec
	s.order = append(s.order, rec.Ref)
	return rec.Ref
}

func (s *TestServer) find(name string) []hostRecord {
	found := []hostRecord{}
	for _, ref := range s.order {
		if rec, ok := s.records[ref]; ok && rec.Name == name {
			found = append(found, rec)
		}
	}
	return found
}

func (s *TestServer) nextAvailable(cidr string) (string, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil || network.IP.To4() == nil {
		return "", fmt.Errorf("Invalid network %s", cidr)
	}

	used := map[string]bool{}
	for _, rec := range s.records {
		for _, a := range rec.IPv4Addrs {
			used[a.IPv4Addr] = true
		}
	}

	ones, bits := network.Mask.Size()
	first := binary.BigEndian.Uint32(network.IP.To4())
	size := uint32(1) << uint(bits-ones)
	// skip network and broadcast address
	for off := uint32(1); off+1 < size; off++ {
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, first+off)
		if !used[ip.String()] {
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("Cannot find 1 available IP address(es) in this network %s", cidr)
}

// withDefaultFields strips fields WAPI does not return unless asked for.
func withDefaultFields(recs ...hostRecord) []hostRecord {
	out := []hostRecord{}
	for _, rec := range recs {
		rec.ConfigureForDNS = nil
		rec.Comment = ""
		out = append(out, rec)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, text string) {
	writeJSON(w, status, wapiError{
		Error: "AdmConProtoError: " + text,
		Code:  "Client.Ibap.Proto",
		Text:  text,
	})
}

// hostRecord is the record:host object as the appliance stores it.
type hostRecord struct {
	Ref             string     `json:"_ref,omitempty"`
	Name            string     `json:"name"`
	IPv4Addrs       []ipv4Addr `json:"ipv4addrs"`
	Aliases         []string   `json:"aliases,omitempty"`
	View            string     `json:"view,omitempty"`
	Comment         string     `json:"comment,omitempty"`
	ConfigureForDNS *bool      `json:"configure_for_dns,omitempty"`
}

type ipv4Addr struct {
	Ref      string `json:"_ref,omitempty"`
	IPv4Addr string `json:"ipv4addr"`
	Host     string `json:"host,omitempty"`
}

type wapiError struct {
	Error string `json:"Error"`
	Code  string `json:"code"`
	Text  string `json:"text"`
}

func toIpamHostRecords(recs []hostRecord) []ipam.HostRecord {
	records := []ipam.HostRecord{}
	for _, r := range recs {
		hr := ipam.HostRecord{
			Reference:  ipam.Reference(r.Ref),
			Name:       r.Name,
			Aliases:    r.Aliases,
			View:       r.View,
			IPv4Addrs:  []ipam.IPv4Addr{},
			DNSEnabled: r.ConfigureForDNS == nil || *r.ConfigureForDNS,
		}
		for _, a := range r.IPv4Addrs {
			hr.IPv4Addrs = append(hr.IPv4Addrs, ipam.IPv4Addr{
				Reference: ipam.Reference(a.Ref),
				Address:   ipam.IPAddressStr(a.IPv4Addr),
				Host:      a.Host,
			})
		}
		records = append(records, hr)
	}
	return records
}
