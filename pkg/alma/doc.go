// Package alma provides types, interfaces, and helpers for working with the
// Alma library services platform API.
//
// # Overview
//
// The alma package defines the entity interfaces (IzBib, NzBib, Holding,
// Item, User, Collection, RecSet and its LogicalSet and ItemizedSet
// variants), the
// payload abstraction over XML and JSON documents, and the error types. A
// concrete implementation is provided by the almaclient package, which wires
// the API keys, the HTTP transport and the snapshot store.
//
// Getting a client
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
//	  cli, err := almaclient.New(ctx, &alma.Config{KeysFile: "keys.json"})
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  bib := cli.IzBib("991170891000000000", "UBS", alma.Production)
//	  bib.SortFields(ctx).Update(ctx).Save(ctx)
//	  if bib.HasError() { log.Println(bib.ErrorMessage()) }
//	}
//
// # Error state
//
// Entities do not return errors from mutating operations. A failed fetch or
// update puts the entity in error state: the failure is logged, HasError
// reports it and every later mutating operation is skipped with a log line.
// Data and the query methods still return the error for callers that need it.
// Save is the exception: it snapshots whatever payload is cached, in error
// state or not. ResetError clears the state.
//
// # Payloads
//
// Bibliographic records and sets travel as XML and are handled with etree;
// users and collections travel as JSON. Payload.Find and Payload.Set accept
// etree paths for XML ("set/type", ".//controlfield[@tag='001']") and slash
// separated keys for JSON ("user_group/value").
//
// # Snapshots
//
// Save writes a versioned copy of the payload (bib<mms_id>_01.xml,
// bib<mms_id>_02.xml, ...) through the configured SnapshotStore, on the local
// filesystem or in a NATS object store. Existing versions are never
// overwritten.
package alma
