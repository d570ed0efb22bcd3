package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"docctx/internal/chunker"
	"docctx/internal/crawler"
	"docctx/internal/extractor"
	"docctx/internal/index"
	"docctx/internal/knowledge"
	"docctx/internal/pipeline"
	"docctx/internal/retrieval"
	"docctx/internal/storage"
	"docctx/internal/summary"
	"docctx/internal/watch"
	"docctx/internal/window"

	"github.com/spf13/cobra"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Split a document into typed chunks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := extractor.NewExtractor().ExtractFromFile(".", args[0])
		if err != nil {
			log.Fatalf("Failed to read document: %v", err)
		}

		chunks := chunker.ChunkDocument(doc.Content)
		for i, c := range chunks {
			fmt.Printf("%3d  %-9s %5d-%-5d %s\n", i, c.Type, c.Start, c.End, truncate(c.Text, 72))
		}
		fmt.Printf("✅ %d chunks\n", len(chunks))
	},
}

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Chunk, embed and store a document or every document under a directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			log.Fatal(err)
		}
		logger := newLogger()

		ix, store, _, err := initIndexer(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("Setup failed: %v\nCheck your config.yaml and API keys.", err)
		}
		defer store.Close()

		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("Failed to stat %s: %v", path, err)
		}

		ext := extractor.NewExtractor()
		var docs []*extractor.Document
		if info.IsDir() {
			fmt.Printf("📂 Scanning directory: %s\n", path)
			docs, err = index.NewIndexer(crawler.NewCrawler(ext), ext, logger).BuildCorpus(ctx, path)
			if err != nil {
				log.Fatalf("Scan failed: %v", err)
			}
		} else {
			doc, err := ext.ExtractFromFile(filepath.Dir(path), path)
			if err != nil {
				log.Fatalf("Failed to read document: %v", err)
			}
			docs = append(docs, doc)
		}

		fmt.Printf("🧠 Indexing %d documents...\n", len(docs))
		start := time.Now()
		total := 0
		for _, doc := range docs {
			records, err := ix.IndexDocument(ctx, doc.ID, doc.Content, true)
			if err != nil {
				log.Fatalf("Failed to index %s: %v", doc.ID, err)
			}
			fmt.Printf("  -> %s: %d chunks\n", doc.ID, len(records))
			total += len(records)
		}
		fmt.Printf("🎉 Indexed %d chunks in %v.\n", total, time.Since(start).Round(time.Millisecond))
	},
}

var (
	searchTopK     int
	searchNoRerank bool
	searchDoc      string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed chunks with vector similarity and keyword rerank",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			log.Fatal(err)
		}

		store, _, err := initStore(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		embedder, err := initEmbedder(ctx, cfg)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}

		topK := cfg.Search.TopK
		if cmd.Flags().Changed("top-k") {
			topK = searchTopK
		}
		opts := []retrieval.Option{
			retrieval.WithTopK(topK),
			retrieval.WithRerank(!searchNoRerank),
		}
		if searchDoc != "" {
			opts = append(opts, retrieval.WithFilter(storage.Filter{pipeline.MetaDocumentID: searchDoc}))
		}

		results, err := retrieval.SearchAndRerank(ctx, store, embedder, args[0], opts...)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
		if len(results) == 0 {
			fmt.Println("🔍 No matches.")
			return
		}

		for i, r := range results {
			fmt.Printf("%d. [%.3f | vec %.3f] %v (%v)\n", i+1, r.RerankScore, r.Score, r.Metadata[pipeline.MetaDocumentID], r.Metadata[pipeline.MetaChunkType])
			fmt.Printf("   %s\n", truncate(r.Text, 160))
		}
	},
}

var (
	windowOffset      int
	windowRadius      int
	windowMaxChars    int
	windowNoCitations bool
)

var windowCmd = &cobra.Command{
	Use:   "window <file>",
	Short: "Select the paragraphs around a cursor offset that fit the character budget",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Fatal(err)
		}

		doc, err := extractor.NewExtractor().ExtractFromFile(".", args[0])
		if err != nil {
			log.Fatalf("Failed to read document: %v", err)
		}

		radius, maxChars := cfg.Window.Radius, cfg.Window.MaxChars
		if cmd.Flags().Changed("radius") {
			radius = windowRadius
		}
		if cmd.Flags().Changed("max-chars") {
			maxChars = windowMaxChars
		}

		paragraphs := chunker.ParseParagraphs(doc.Content)
		cursor := chunker.ParagraphIndexAt(paragraphs, windowOffset)
		if cursor < 0 {
			fmt.Println("⚠️  Document has no paragraphs.")
			return
		}

		selected := window.Select(chunker.Texts(paragraphs), cursor, radius,
			window.WithMaxTotalChars(maxChars),
			window.WithCitationPriority(!windowNoCitations),
		)
		fmt.Printf("📍 Cursor paragraph %d, %d selected\n", cursor, len(selected))
		for _, p := range selected {
			marker := " "
			if p.HasCitation {
				marker = "*"
			}
			fmt.Printf("\n[%d]%s\n%s\n", p.Index, marker, p.Text)
		}
	},
}

var (
	summarizeForce    bool
	summarizeProvider string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize each section of a document, reusing cached summaries while the file is unchanged",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		path := summary.FileKey(args[0])
		cfg, err := loadConfig()
		if err != nil {
			log.Fatal(err)
		}

		store, dialect, err := initStore(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		summaries, err := storage.NewSummaryStore(ctx, store.DB(), dialect)
		if err != nil {
			log.Fatalf("Failed to initialize summaries: %v", err)
		}
		cache := summary.NewCache()
		if _, err := summaries.Load(ctx, cache); err != nil {
			log.Fatalf("Failed to load summaries: %v", err)
		}

		doc, err := extractor.NewExtractor().ExtractFromFile(".", path)
		if err != nil {
			log.Fatalf("Failed to read document: %v", err)
		}
		sections := summary.SplitSections(filepath.Base(path), doc.Content)

		stale, err := cache.IsFileStale(path)
		if err != nil {
			log.Fatalf("Failed to check %s: %v", path, err)
		}
		if stale || summarizeForce {
			summarizer, err := initSummarizer(ctx, cfg)
			if err != nil {
				log.Fatalf("Setup failed: %v", err)
			}
			fmt.Printf("✍️  Summarizing %d sections...\n", len(sections))
			texts, err := knowledge.SummarizeSections(ctx, summarizer, sections)
			if err != nil {
				log.Fatalf("Failed to summarize: %v", err)
			}
			record, err := cache.RefreshFileSummaries(path, texts)
			if err != nil {
				log.Fatalf("Failed to refresh summaries: %v", err)
			}
			if err := summaries.Save(ctx, record); err != nil {
				log.Fatalf("Failed to save summaries: %v", err)
			}
		} else {
			fmt.Println("♻️  Using cached summaries.")
		}

		for _, s := range sections {
			cached, ok := cache.GetSectionSummary(path, s.ID)
			if !ok {
				continue
			}
			fmt.Printf("\n%s %s\n%s\n", headingMarker(s.Level), s.Title, cached.Summary)
		}
	},
}

func headingMarker(level int) string {
	if level == 0 {
		return "§"
	}
	return strings.Repeat("#", level)
}

var (
	syncForce bool
	syncBase  string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reindex documents changed since a git ref and drop stale summaries",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			log.Fatal(err)
		}
		logger := newLogger()

		ix, store, dialect, err := initIndexer(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("Setup failed: %v\nCheck your config.yaml and API keys.", err)
		}
		defer store.Close()

		summaries, err := storage.NewSummaryStore(ctx, store.DB(), dialect)
		if err != nil {
			log.Fatalf("Failed to initialize summaries: %v", err)
		}

		s := pipeline.NewIncrementalSync(cfg.Project.Root, ix, extractor.NewExtractor(),
			pipeline.WithBaseRef(syncBase),
			pipeline.WithSummaries(summary.NewCache(), summaries),
			pipeline.WithSyncLogger(logger),
		)
		if _, err := s.Run(ctx, syncForce); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Reindex documents as they change on disk",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatal(err)
		}
		logger := newLogger()

		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		ix, store, dialect, err := initIndexer(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("Setup failed: %v\nCheck your config.yaml and API keys.", err)
		}
		defer store.Close()

		summaries, err := storage.NewSummaryStore(ctx, store.DB(), dialect)
		if err != nil {
			log.Fatalf("Failed to initialize summaries: %v", err)
		}

		ext := extractor.NewExtractor()
		s := pipeline.NewIncrementalSync(root, ix, ext,
			pipeline.WithSummaries(summary.NewCache(), summaries),
			pipeline.WithSyncLogger(logger),
		)
		w, err := watch.New(root, s, ext, watch.WithLogger(logger))
		if err != nil {
			log.Fatalf("Failed to start watcher: %v", err)
		}
		defer w.Close()

		fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", root)
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("Watcher stopped: %v", err)
		}
		fmt.Println("👋 Stopped.")
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", retrieval.DefaultTopK, "Number of results")
	searchCmd.Flags().BoolVar(&searchNoRerank, "no-rerank", false, "Keep the vector order")
	searchCmd.Flags().StringVar(&searchDoc, "doc", "", "Only search chunks of this document ID")

	windowCmd.Flags().IntVar(&windowOffset, "offset", 0, "Cursor byte offset in the document")
	windowCmd.Flags().IntVar(&windowRadius, "radius", 2, "Paragraphs to take on each side of the cursor")
	windowCmd.Flags().IntVar(&windowMaxChars, "max-chars", window.DefaultMaxTotalChars, "Character budget")
	windowCmd.Flags().BoolVar(&windowNoCitations, "no-citations", false, "Do not favour paragraphs with citations")

	summarizeCmd.Flags().BoolVarP(&summarizeForce, "force", "f", false, "Regenerate even when cached summaries are fresh")
	summarizeCmd.Flags().StringVar(&summarizeProvider, "provider", "", "Summarizer to use: extractive, openai or gemini (default from config)")

	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "Reindex every document when git reports no changes")
	syncCmd.Flags().StringVar(&syncBase, "base", "HEAD", "Git ref to diff against")
}
