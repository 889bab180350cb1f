package infoblox

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
)

const (
	hostRecordObject = "record:host"

	// %2B is an URL encoded '+', adding aliases to the default return fields
	returnAliases = "_return_fields%2B=aliases"
)

// nextAvailableIP is the WAPI function expression asking the server to
// allocate the next free address of the given network.
func nextAvailableIP(addressSpace ipam.IPSubnetStr) string {
	return "func:nextavailableip:" + string(addressSpace)
}

func hostQuery(name string) string {
	return hostRecordObject + "?name=" + url.QueryEscape(name) + "&" + returnAliases
}

func newHTTPClient(verifySSL bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: !verifySSL, //nolint:gosec // explicit verify_ssl setting
	}
	return &http.Client{Transport: transport}
}

// errorText extracts the server supplied message of an error body.
func errorText(body []byte) string {
	we := wapiError{}
	if err := json.Unmarshal(body, &we); err == nil {
		if we.Text != "" {
			return we.Text
		}
		if we.Error != "" {
			return we.Error
		}
	}
	return strings.TrimSpace(string(body))
}
