// Package hclflow loads flow definitions written in HCL into a
// flow.Graph. A definition declares nodes by registry kind and wires
// ports together:
//
//	node "math" "n1" {
//	  set {
//	    a = 2
//	    b = 3
//	  }
//	}
//
//	node "math" "n2" {
//	  set {
//	    b = 4
//	  }
//	}
//
//	connect {
//	  from = "n1.c"
//	  to   = "n2.a"
//	}
//
// Node labels double as node ids, so connect references and run results
// stay human-readable. A path given to Load may be a single .hcl file or
// a directory, which is scanned recursively; all files merge into one
// graph.
package hclflow
