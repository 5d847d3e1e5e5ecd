// Package status exposes a runtimeconn.Manager to a console UI.
//
// A Bridge observes the manager and keeps a snapshot of the connection
// with the latest device data and recent Runtime log lines. Handler serves
// that snapshot over HTTP, accepts connect/close and run-mode commands, and
// streams live events to WebSocket clients on /events.
//
//	bridge := status.NewBridge(status.BridgeConfig{})
//	mgr, _ := runtimeconn.New(runtimeconn.Config{Observers: []runtimeconn.Observer{bridge}})
//	http.ListenAndServe(":8080", status.Handler(status.HandlerConfig{
//		Bridge:     bridge,
//		Controller: mgr,
//	}))
package status
