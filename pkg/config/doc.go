// Package config loads the startup configuration document describing the
// set of mock instances to bring up and converts it into instance.Spec
// values for the Lifecycle Manager.
//
// Documents are JsonMC by default (any extension other than .yaml/.yml);
// .yaml/.yml files are parsed as plain YAML. Both formats decode into the
// same Document shape:
//
//	{
//	  "servers": [
//	    {
//	      "server": {"serverId": "svc", "port": 8080},
//	      "expectations": [...]
//	    }
//	  ]
//	}
package config
