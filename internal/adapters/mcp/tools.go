package mcpadapter

import "github.com/mark3labs/mcp-go/mcp"

func searchTool() mcp.Tool {
	return mcp.NewTool("graphrag_search",
		mcp.WithDescription("Search the GraphRAG knowledge store. Local search matches text chunks and entities; global search matches community summaries."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithString("search_type",
			mcp.Description("local, global, hybrid or auto (default: local)"),
			mcp.Enum("local", "global", "hybrid", "auto"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum results (default: 10)"),
		),
		mcp.WithBoolean("generate_answer",
			mcp.Description("Generate an answer from the results and score it"),
		),
		mcp.WithBoolean("include_entities",
			mcp.Description("Merge entity matches into local results"),
		),
		mcp.WithBoolean("include_graph",
			mcp.Description("Expand entity matches over the knowledge graph"),
		),
	)
}

func evaluateTool() mcp.Tool {
	return mcp.NewTool("graphrag_evaluate",
		mcp.WithDescription("Score an answer against search results: relevance, coverage, quality, faithfulness and overall, each in [0,1]."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The query the results answer"),
		),
		mcp.WithArray("results",
			mcp.Description("Search results as returned by graphrag_search (id, type, content, score, metadata)"),
		),
		mcp.WithString("answer",
			mcp.Description("Answer to score; empty scores retrieval only"),
		),
		mcp.WithString("ground_truth",
			mcp.Description("Optional reference answer"),
		),
	)
}

func graphStatsTool() mcp.Tool {
	return mcp.NewTool("graphrag_graph_stats",
		mcp.WithDescription("Node, edge, density and component statistics of the knowledge graph"),
	)
}
