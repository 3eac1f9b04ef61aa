// Package bazar provides a Go client for the bazar marketplace API:
// AI-assisted listing ingestion and semantic product search for local
// sellers and buyers.
//
// # Searching
//
//	client := bazar.New("http://localhost:8080", bazar.WithAPIKey(key))
//	res, _ := client.SearchFor("fresh tomatoes").
//	    Near(26.9124, 75.7873).Km(10).
//	    Limit(20).
//	    Do(ctx)
//	for _, r := range res.Results {
//	    fmt.Println(r.Rank, r.Name, r.Price)
//	}
//
// # Listing a product
//
//	job, _ := client.Ingest(ctx, bazar.TextListing("seller-42",
//	    "Selling 10 kg fresh tomatoes, 40 rupees per kg"))
//	job, _ = client.WaitForJob(ctx, job.JobID, time.Second)
//	if job.Status == "completed" {
//	    p, _ := client.Product(ctx, job.ProductID)
//	    fmt.Println(p.Name, p.Price)
//	}
//
// Errors reported by the API unwrap to the package sentinels, so
// errors.Is(err, bazar.ErrProductNotFound) works across the HTTP hop.
package bazar
