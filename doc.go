// Package shelfrank joins an external recommendation service and an
// external NLP search service with a read-only product catalog.
//
// The catalog is the source of truth for product rows. Recommendations
// and search matches that reference ids missing from the catalog are
// dropped, never fabricated. Both upstream services are gated by a
// background health monitor: when a service is known to be down, calls
// fail fast with ErrUpstreamUnavailable and a recheck is scheduled.
//
// # Personalized feed
//
//	client, _ := shelfrank.New(ctx,
//	    shelfrank.WithCatalogDSN("file:catalog.db?mode=ro"),
//	    shelfrank.WithRecommender("http://recommender:8000"),
//	    shelfrank.WithNLP("http://nlp:8001"),
//	)
//	defer client.Close()
//
//	items, err := client.GetPersonalizedFeed(ctx, "user-42", 20)
//	if errors.Is(err, shelfrank.ErrUpstreamUnavailable) {
//	    page, _ := client.BrowseCatalog(ctx, 0, 20) // unranked fallback
//	}
//
// # Search
//
//	res, _ := client.Search(ctx, "bebidas sn azucar")
//	if res.Correction.Applied {
//	    fmt.Println("showing results for", res.Correction.CorrectedQuery)
//	}
//
// # Local re-ranking
//
// Reconcile sorts an already-fetched page by a rank list without another
// network round trip:
//
//	sorted := shelfrank.Reconcile(page, []int64{7, 5, 9})
package shelfrank
