// Package almaclient provides the primary entry point for constructing an
// Alma API client that implements the alma.Client interface.
//
// It layers configuration, API keys, HTTP transport and snapshot storage on
// top of the entity interfaces and types defined in the alma package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
//	  "github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/almaclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Keys file from the alma_api_keys environment variable.
//	  cli, err := almaclient.New(ctx, &alma.Config{})
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // Or from a YAML/JSON configuration file; ALMA_* variables override it.
//	  cli, err = almaclient.NewFromConfigFile(ctx, "alma.yaml")
//	  if err != nil { log.Fatal(err) }
//
//	  set := cli.RecSet("UBS", alma.Production, alma.WithSetName("Weeding 2024"))
//	  members, err := set.Members(ctx)
//	  if err != nil { log.Fatal(err) }
//	  for _, m := range members {
//	    if bib, ok := m.Entity.(alma.IzBib); ok {
//	      bib.Save(ctx)
//	    }
//	  }
//	}
//
// # Configuration file
//
//	api_endpoint: https://api-eu.hosted.exlibrisgroup.com/almaws/v1
//	keys_file: /etc/alma/keys.yaml
//	retry_max: 3
//	retry_delay: 3s
//	snapshot_backend: nats
//	nats_url: nats://localhost:4222
//
// The package also provides the convenience constructors NewWithKeysFile and
// NewFromConfigFile that wrap New.
package almaclient
