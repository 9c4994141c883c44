// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package zik is a client for the resource-access protocol spoken by
// Parrot Zik headsets.
//
// The device exposes resources under paths such as "/api/system/battery".
// Each resource supports a subset of four verbs (get, set, enable, disable)
// that depends on the firmware generation. A request is answered by exactly
// one answer message, but any number of notifications may arrive first; the
// Manager dispatches them while waiting and keeps a resource cache current.
//
// # Quick Start
//
// Open a transport, let the Prober discover the firmware generation and
// work with the versioned manager it returns:
//
//	ctx := context.Background()
//	t, err := zik.Dial(ctx, "tcp", "192.168.1.50:5000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	prober, err := zik.NewProber(t)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mgr, err := prober.Negotiate(ctx, zik.DefaultVersionPolicy)
//	if err != nil {
//	    prober.Close()
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	battery, err := mgr.Get(ctx, zik.PathBattery)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Battery:", battery.Get("system.battery.percent").Int())
//
//	// Writes re-read the resource; the result is what the device reports
//	nc, err := mgr.Set(ctx, zik.PathNoiseControl, true)
//
// # Catalogs
//
// GenericCatalog holds only what every firmware answers and is used while
// probing. V1Catalog and V2Catalog describe the two known generations.
// Custom catalogs can be built with NewCatalog or loaded from YAML with
// LoadCatalog. Paths or verbs outside the catalog fail with
// ErrUnknownResource or ErrUnsupportedVerb before anything is sent.
//
// # Error Handling
//
// Errors are *Error values wrapping one of the package sentinels:
//
//	_, err := mgr.Enable(ctx, zik.PathFlightMode)
//	switch {
//	case errors.Is(err, zik.ErrUnknownResource):
//	    // this firmware has no flight mode
//	case errors.Is(err, zik.ErrConnectionLost):
//	    // reconnect
//	}
//
// A failed send or receive leaves the manager unusable: every later call
// returns ErrConnectionLost. Open a new transport to reconnect.
//
// # Thread Safety
//
// A Manager is safe for concurrent use; operations are serialized because
// the protocol allows one request in flight per connection. The Cache may
// be read from any goroutine.
//
// # References
//
//   - gjson: https://github.com/tidwall/gjson
//   - sjson: https://github.com/tidwall/sjson
//   - gorilla/websocket: https://github.com/gorilla/websocket
package zik
