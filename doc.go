// Package oaiharvest implements a client for the Open Archives Initiative
// Protocol for Metadata Harvesting (OAI-PMH), a low-barrier mechanism for
// repository interoperability.
//
// A Client issues one verb per call, walks the XML response once and returns
// typed values: the repository Identity, MetadataFormat descriptors, Records,
// Headers and Sets. List verbs return a Page, which carries a Cursor when the
// repository has more results. Pass the cursor to the matching Resume method
// to fetch the next page, or let a Harvester follow cursors for you.
//
// Metadata payloads are decoded by prefix through a Registry. Dublin Core
// (oai_dc) is registered by default.
//
// Basic usage:
//
//	client, err := oaiharvest.NewClient(oaiharvest.Config{Endpoint: "http://export.arxiv.org/oai2"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	page, err := client.ListRecords(ctx, oaiharvest.ListArgs{Set: "cs"})
//	for rec, ok := page.Next(); ok; rec, ok = page.Next() {
//		fmt.Println(rec.Header.Identifier)
//	}
//
// A command line tool, called `oaiharvest`, lives under cmd/.
package oaiharvest
