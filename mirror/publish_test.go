// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mirror

import (
	"context"
	"errors"
	"reflect"
	"testing"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"

	zik "github.com/netascode/go-zik"
)

// elemNames flattens a gNMI path into its element names
func elemNames(p *gnmipb.Path) []string {
	names := make([]string, 0, len(p.GetElem()))
	for _, e := range p.GetElem() {
		names = append(names, e.GetName())
	}
	return names
}

// TestBuildSetRequest tests the translation of resource values into updates
func TestBuildSetRequest(t *testing.T) {
	m := &Mirror{Prefix: "/headsets/den", Encoding: EncodingJSONIETF}

	values := map[string]zik.Value{
		zik.PathFlightMode: zik.NewValue(`false`),
		zik.PathBattery:    zik.NewValue(`{"system":{"battery":{"percent":64}}}`),
		"/api/empty":       {},
	}

	req, paths, err := m.buildSetRequest(values)
	if err != nil {
		t.Fatalf("buildSetRequest() error: %v", err)
	}

	wantPaths := []string{"/headsets/den/api/flight_mode", "/headsets/den/api/system/battery"}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Errorf("paths = %v, want %v", paths, wantPaths)
	}

	updates := req.GetUpdate()
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if len(req.GetReplace()) != 0 || len(req.GetDelete()) != 0 {
		t.Error("mirror should only issue updates")
	}

	var got [][]string
	for _, u := range updates {
		got = append(got, elemNames(u.GetPath()))
		if u.GetVal() == nil {
			t.Errorf("update %v has no value", u.GetPath())
		}
	}
	want := [][]string{
		{"headsets", "den", "api", "flight_mode"},
		{"headsets", "den", "api", "system", "battery"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("update paths = %v, want %v", got, want)
	}
}

// TestBuildSetRequestErrors tests rejected and empty inputs
func TestBuildSetRequestErrors(t *testing.T) {
	m := &Mirror{Encoding: EncodingJSONIETF}

	if _, _, err := m.buildSetRequest(map[string]zik.Value{"api/battery": zik.NewValue(`1`)}); err == nil {
		t.Error("expected error for relative resource path")
	}

	req, paths, err := m.buildSetRequest(map[string]zik.Value{"/api/battery": {}})
	if err != nil || req != nil || len(paths) != 0 {
		t.Errorf("buildSetRequest() of empty values = %v, %v, %v", req, paths, err)
	}
}

// TestPublishNothing tests that an empty publish never connects
func TestPublishNothing(t *testing.T) {
	m, err := NewMirror("127.0.0.1", TLS(false))
	if err != nil {
		t.Fatalf("NewMirror() error: %v", err)
	}
	defer m.Close()

	res, err := m.PublishCache(context.Background(), zik.NewCache())
	if err != nil {
		t.Fatalf("PublishCache() error: %v", err)
	}
	if res.Attempts != 0 || res.Response != nil {
		t.Errorf("unexpected result %+v", res)
	}
	if res.JSON() != "" {
		t.Errorf("JSON() = %q, want empty", res.JSON())
	}
	if m.connected {
		t.Error("empty publish should not connect")
	}
}

// TestPublishValidation tests argument and context checks
func TestPublishValidation(t *testing.T) {
	m := &Mirror{Encoding: EncodingJSONIETF, logger: &zik.NoOpLogger{}}

	if _, err := m.PublishCache(context.Background(), nil); err == nil {
		t.Error("expected error for nil cache")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Publish(ctx, map[string]zik.Value{zik.PathBattery: zik.NewValue(`1`)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() with canceled context = %v, want context.Canceled", err)
	}

	if _, err := (&Mirror{logger: &zik.NoOpLogger{}}).Publish(context.Background(),
		map[string]zik.Value{zik.PathBattery: zik.NewValue(`1`)}); err == nil {
		t.Error("expected error publishing through a closed mirror")
	}
}

// TestResultJSON tests response rendering
func TestResultJSON(t *testing.T) {
	res := Result{Response: &gnmipb.SetResponse{Timestamp: 42}}
	if res.JSON() == "" {
		t.Error("JSON() should render the response")
	}
}
