// Package runtimeconn keeps a console connected to a Runtime over
// WebSocket.
//
// A Manager owns one connection at a time. It dials the configured address
// at start and then checks every PollInterval, reconnecting whenever the
// connection is down. After a connection opens the manager sends the
// console role byte, resets its frame reassembler, and reports
// StateReady.
//
// # Inbound
//
// Every binary message is fed through a protocol.Reassembler, so frames
// may be split across messages at any byte. Complete frames are handled
// in arrival order:
//
//   - TimeStamps: the one-way latency (now - DawnTimestamp) / 2 is
//     recorded and reported as EventLatency.
//   - DeviceData: reported as EventDeviceData.
//   - Log: each line is logged and reported as EventLog.
//   - ChallengeData: ignored.
//   - anything else: logged and counted as unsupported.
//
// Decode failures are logged and counted; they never close the connection.
//
// # Outbound
//
// Send and the typed helpers build a packet with BuildPacket and write it
// when the connection is ready. Otherwise the message is dropped and
// ErrNotReady returned; nothing is queued.
//
// # Observing
//
// Observers passed in Config receive an Event for every state change and
// every decoded message. They run on the manager goroutine and must not
// block or call back into the Manager.
package runtimeconn
