package repo

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// exportServer answers every request in-process, standing in for the export host.
type exportServer func(*http.Request) (*http.Response, error)

func (f exportServer) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// csvResponse builds an export reply carrying body with the given status.
func csvResponse(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "text/csv")
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}

// clientFor points a DatasetClient at handler instead of the network.
func clientFor(url string, handler exportServer) *DatasetClient {
	client := NewDatasetClient(url, 0)
	client.httpClient = &http.Client{Transport: handler}
	return client
}
