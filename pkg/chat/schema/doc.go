// Package schema assembles flow engines from declarative pipeline definitions.
//
// A definition lists stages by ref; refs resolve through a Registry. Example:
//
//	version: "1"
//	bus:
//	  retention_bound: 500
//	  wait_timeout: 2s
//	stages:
//	  - ref: trim
//	  - ref: classifier
//	  - name: reply
//	    ref: responder
package schema
