// Package vecrag embeds the vecrag retrieval pipeline in a Go program:
// documents are split into overlapping token windows, embedded, kept in an
// exact flat vector index and used as context for generated answers.
//
//	client, _ := vecrag.New(ctx,
//	    vecrag.WithDimension(1536),
//	    vecrag.WithFileIndex("data/index"),
//	    vecrag.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", "text-embedding-3-small", "gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, "", "handbook.md", text)
//	answer, _ := client.Ask(ctx, "How many vacation days do I get?", 5)
//	fmt.Println(answer.Text, answer.Sources)
package vecrag
