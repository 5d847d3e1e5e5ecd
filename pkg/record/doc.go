// Package record keeps a session recording of Runtime traffic.
//
// A Recorder observes a runtimeconn.Manager and buffers device data, log
// lines and latency samples. Run flushes the buffer on an interval as one
// newline-delimited JSON object per record, to an S3 bucket (S3Sink) or a
// local directory (DiskSink).
package record
