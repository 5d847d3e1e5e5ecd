// Package config loads runtimelink.json, the configuration file of the
// runtimelink console.
//
// # Configuration File Structure
//
//	{
//	  "runtime": {
//	    "address": "192.168.0.10",
//	    "defaultPort": 5000,
//	    "pollInterval": "5s",
//	    "handshakeTimeout": "10s",
//	    "writeTimeout": "5s",
//	    "keepAlive": {
//	      "enabled": true,
//	      "mode": "teleop",
//	      "interval": "5s"
//	    }
//	  },
//	  "status": {
//	    "listen": "127.0.0.1:8080"
//	  },
//	  "record": {
//	    "bucket": "robot-sessions",
//	    "prefix": "recordings/",
//	    "region": "us-east-1",
//	    "flushInterval": "1m",
//	    "maxBuffered": 10000
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// Every field is optional. Durations are Go duration strings. LoadFile
// fills defaults and validates; errors point at the offending line.
package config
