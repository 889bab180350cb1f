package infoblox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/metrics"
)

// InfobloxIPAM talks to the Infoblox WAPI. Every call is attempted exactly
// once, address allocation is left to the server.
type InfobloxIPAM struct {
	client  *http.Client
	baseURL string
	cfg     ipam.Config
	log     logr.Logger
}

func NewIpam(cfg ipam.Config, log logr.Logger) (ipam.IPAddressManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.VerifySSL {
		log.Info("TLS certificate verification of the IPAM server is disabled, set verify_ssl to enable it", "server", cfg.Server)
	}

	return &InfobloxIPAM{
		client:  newHTTPClient(cfg.VerifySSL),
		baseURL: cfg.BaseURL(),
		cfg:     cfg,
		log:     log.WithValues("ipam", ipam.IpamTypeInfoblox, "server", cfg.Server),
	}, nil
}

func (m *InfobloxIPAM) CreateHost(ctx context.Context, name string, addressSpace ipam.IPSubnetStr, enableDNS bool, opts ...ipam.CreateOption) (ipam.Reference, error) {
	o := (&ipam.CreateOptions{}).ApplyOptions(opts)
	payload := newHostRecordRequest(name, addressSpace, enableDNS, o)
	m.log.V(0).Info("create host record", "name", name, "addressSpace", addressSpace)

	var ref string
	if err := m.request(ctx, http.MethodPost, hostRecordObject, payload, &ref); err != nil {
		return "", errors.Wrapf(err, "failed to create host record %s in %s", name, addressSpace)
	}
	if ref == "" {
		return "", &ipam.DecodeError{URL: m.baseURL + hostRecordObject, Err: errors.New("empty reference")}
	}

	m.log.V(1).Info("created host record", "reference", ref)
	return ipam.Reference(ref), nil
}

func (m *InfobloxIPAM) GetHost(ctx context.Context, ref ipam.Reference) (*ipam.HostRecord, error) {
	record := wapiHostRecord{}
	if err := m.request(ctx, http.MethodGet, string(ref), nil, &record); err != nil {
		return nil, errors.Wrapf(err, "failed to get host record %s", ref)
	}

	m.log.V(1).Info("got host record", "reference", ref, "record", record)
	hr := convertToIpamHostRecord(record)
	return &hr, nil
}

func (m *InfobloxIPAM) FindHosts(ctx context.Context, name string) ([]ipam.HostRecord, error) {
	records := []wapiHostRecord{}
	if err := m.request(ctx, http.MethodGet, hostQuery(name), nil, &records); err != nil {
		return nil, errors.Wrapf(err, "failed to query host records for %s", name)
	}

	m.log.V(0).Info("queried host records", "name", name, "count", len(records))
	return convertToIpamHostRecordArray(records), nil
}

func (m *InfobloxIPAM) DeleteHost(ctx context.Context, ref ipam.Reference) error {
	var deleted json.RawMessage
	if err := m.request(ctx, http.MethodDelete, string(ref), nil, &deleted); err != nil {
		return errors.Wrapf(err, "failed to delete host record %s", ref)
	}

	m.log.V(1).Info("deleted host record", "reference", ref, "result", string(deleted))
	return nil
}

// request sends one WAPI call and decodes a 2xx body into out, if given.
func (m *InfobloxIPAM) request(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	url := m.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "failed to encode payload for %s", path)
		}
		m.log.V(0).Info("IPAM request payload", "method", method, "path", path, "payload", string(data))
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &ipam.TransportError{Method: method, URL: url, Err: err}
	}
	req.SetBasicAuth(m.cfg.Username, m.cfg.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	m.log.V(1).Info("IPAM request", "method", method, "url", url)
	started := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		metrics.ObserveRequest(method, 0, started)
		return &ipam.TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(method, resp.StatusCode, started)

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return &ipam.TransportError{Method: method, URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ipam.StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Text:       errorText(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ipam.DecodeError{URL: url, Err: err}
	}
	return nil
}
