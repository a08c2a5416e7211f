package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/pulse/internal/models"
	cfgPkg "github.com/xhad/pulse/pkg/config"
	"github.com/xhad/pulse/pkg/forecast"
	"github.com/xhad/pulse/pkg/gdelt"
	"github.com/xhad/pulse/pkg/llm"
	"github.com/xhad/pulse/pkg/processor"
	"github.com/xhad/pulse/pkg/sentiment"
	"github.com/xhad/pulse/pkg/store"
	"github.com/xhad/pulse/pkg/topics"
	"github.com/xhad/pulse/pkg/youtube"
)

var stages = []string{"youtube", "gdelt", "preprocess", "sentiment", "topics", "forecast"}

func main() {
	// Missing .env is fine; config and real env still apply.
	_ = godotenv.Load()

	var configPath, stage, similar string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&stage, "stage", "all", "Pipeline stage to run (youtube|gdelt|preprocess|sentiment|topics|forecast|all)")
	flag.StringVar(&similar, "similar", "", "Print stored records similar to this text instead of running a stage")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if similar != "" {
		if err := querySimilar(context.Background(), cfg, similar); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := run(cfg, stage); err != nil {
		log.Fatal(err)
	}
}

// querySimilar embeds the query text and prints the closest stored records.
func querySimilar(ctx context.Context, cfg *cfgPkg.Config, query string) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("similarity search needs a database: set DATABASE_URL")
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	corpus, err := store.NewWithConfig(store.CorpusStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	}, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize corpus store: %v", err)
	}
	defer corpus.Close()

	embeddings, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("failed to embed query: %v", err)
	}

	records, err := corpus.Similar(ctx, embeddings[0], 0)
	if err != nil {
		return fmt.Errorf("failed to query records: %v", err)
	}

	for _, rec := range records {
		color.Cyan("[%s] %s (%s, compound %.2f)", rec.Source, rec.PublishedAt.Format("2006-01-02"), rec.Label, rec.Compound)
		fmt.Println("  " + rec.CleanText)
	}
	return nil
}

func run(cfg *cfgPkg.Config, stage string) error {
	start, end, err := studyWindow(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	dataset := store.NewDataset(cfg.Data.Dir)

	toRun := []string{stage}
	if stage == "all" {
		toRun = stages
	}

	for _, s := range toRun {
		color.Blue("\n=== Stage: %s ===", s)

		var err error
		switch s {
		case "youtube":
			err = runYouTube(ctx, cfg, dataset, start, end)
		case "gdelt":
			err = runGDELT(ctx, cfg, dataset, start, end)
		case "preprocess":
			err = runPreprocess(cfg, dataset)
		case "sentiment":
			err = runSentiment(ctx, cfg, dataset)
		case "topics":
			err = runTopics(ctx, cfg, dataset)
		case "forecast":
			err = runForecast(cfg, dataset)
		default:
			err = fmt.Errorf("unknown stage %q", s)
		}
		if err != nil {
			return fmt.Errorf("stage %s: %w", s, err)
		}
	}

	color.Green("\n✓ Done")
	return nil
}

func studyWindow(cfg *cfgPkg.Config) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", cfg.Study.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad start date: %v", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Study.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad end date: %v", err)
	}
	// End date is inclusive.
	return start.UTC(), end.UTC().Add(24*time.Hour - time.Second), nil
}

func runYouTube(ctx context.Context, cfg *cfgPkg.Config, dataset store.Dataset, start, end time.Time) error {
	bar := getSpinner("Collecting YouTube comments...")

	client, err := youtube.NewWithConfig(youtube.ClientConfig{
		APIKey:            cfg.YouTube.APIKey,
		APIKeyFallback:    cfg.YouTube.APIKeyFallback,
		MaxVideosPerQuery: cfg.YouTube.MaxVideosPerQuery,
		MaxCommentsPerVid: cfg.YouTube.MaxCommentsPerVid,
		RateLimit:         cfg.YouTube.RateLimit,
		OnProgress: func(videoID string) {
			bar.Add(1)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize youtube client: %v", err)
	}

	comments, err := client.Collect(ctx, cfg.Study.Keywords, start, end)
	if err != nil {
		return fmt.Errorf("failed to collect comments: %v", err)
	}
	bar.Finish()

	if err := dataset.WriteComments(comments); err != nil {
		return err
	}
	color.Green("\n✓ Collected %d comments -> %s", len(comments), dataset.Path(store.CommentsFile))
	return nil
}

func runGDELT(ctx context.Context, cfg *cfgPkg.Config, dataset store.Dataset, start, end time.Time) error {
	bar := getSpinner("Collecting GDELT articles...")

	client := gdelt.NewWithConfig(gdelt.ClientConfig{
		MaxRecords: cfg.GDELT.MaxRecords,
		RateLimit:  cfg.GDELT.RateLimit,
		OnProgress: func(keyword string, w gdelt.Window) {
			bar.Add(1)
		},
	})

	articles, err := client.Collect(ctx, cfg.Study.Keywords, start, end)
	if err != nil {
		return fmt.Errorf("failed to collect articles: %v", err)
	}
	bar.Finish()

	if cfg.GDELT.FetchText {
		fetchBar := getProgressBar(len(articles), "Fetching article text...")
		fetcher := gdelt.NewFulltextFetcher(gdelt.FulltextConfig{
			RateLimit: cfg.GDELT.RateLimit,
			OnProgress: func(url string) {
				fetchBar.Add(1)
			},
		})
		fetcher.Enrich(ctx, articles)
		fetchBar.Finish()
	}

	if err := dataset.WriteArticles(articles); err != nil {
		return err
	}
	color.Green("\n✓ Collected %d articles -> %s", len(articles), dataset.Path(store.ArticlesFile))
	return nil
}

func runPreprocess(cfg *cfgPkg.Config, dataset store.Dataset) error {
	var records []models.Record

	comments, err := dataset.ReadComments()
	if err != nil {
		color.Yellow("no youtube data: %v", err)
	}
	for _, c := range comments {
		records = append(records, models.RecordFromComment(c))
	}

	articles, err := dataset.ReadArticles()
	if err != nil {
		color.Yellow("no gdelt data: %v", err)
	}
	for _, a := range articles {
		records = append(records, models.RecordFromArticle(a))
	}

	if len(records) == 0 {
		return fmt.Errorf("nothing to preprocess: run the youtube and gdelt stages first")
	}

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		Lowercase:       cfg.Processor.Lowercase,
		RemoveStopwords: cfg.Processor.RemoveStopwords,
		CustomStopwords: cfg.Processor.CustomStopwords,
		MinLength:       cfg.Processor.MinLength,
		Languages:       cfg.Processor.Languages,
	})

	cleaned, err := proc.Clean(records)
	if err != nil {
		return fmt.Errorf("failed to clean records: %v", err)
	}

	if err := dataset.WriteRecords(store.RecordsFile, cleaned); err != nil {
		return err
	}
	color.Green("\n✓ Kept %d of %d records -> %s", len(cleaned), len(records), dataset.Path(store.RecordsFile))
	return nil
}

func runSentiment(ctx context.Context, cfg *cfgPkg.Config, dataset store.Dataset) error {
	records, err := dataset.ReadRecords(store.RecordsFile)
	if err != nil {
		return err
	}

	thresholds := sentiment.LabelThresholds{
		Positive: cfg.Sentiment.Positive,
		Negative: cfg.Sentiment.Negative,
	}

	var scorer sentiment.Scorer
	switch cfg.Sentiment.Engine {
	case "llm":
		engine, err := llm.NewWithConfig(llm.ChatConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			BaseURL:     cfg.LLM.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize chat engine: %v", err)
		}
		scorer = sentiment.NewLLMScorer(engine, thresholds)
	default:
		if cfg.Sentiment.LexiconPath != "" {
			scorer, err = sentiment.NewVaderScorerFromFiles(thresholds,
				cfg.Sentiment.LexiconPath, cfg.Sentiment.EmojiLexiconPath)
		} else {
			scorer, err = sentiment.NewVaderScorer(thresholds)
		}
		if err != nil {
			return fmt.Errorf("failed to initialize scorer: %v", err)
		}
	}

	bar := getProgressBar(len(records), fmt.Sprintf("Scoring sentiment (%s)...", scorer.Name()))
	scored, failed, err := sentiment.ScoreAll(ctx, scorer, records, func() {
		bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("failed to score records: %v", err)
	}
	bar.Finish()
	if failed > 0 {
		color.Yellow("\n%d records could not be scored", failed)
	}

	if err := dataset.WriteRecords(store.ScoredFile, scored); err != nil {
		return err
	}

	series := sentiment.Aggregate(scored, sentiment.Bucket(cfg.Sentiment.Bucket))
	if err := dataset.WriteSeries(series); err != nil {
		return err
	}
	color.Green("\n✓ Scored %d records, %d series points -> %s", len(scored), len(series), dataset.Path(store.SeriesFile))
	return nil
}

func runTopics(ctx context.Context, cfg *cfgPkg.Config, dataset store.Dataset) error {
	records, err := dataset.ReadRecords(store.ScoredFile)
	if err != nil {
		return err
	}

	modeller := topics.NewWithConfig(topics.ModellerConfig{
		NumTopics:   cfg.Topics.NumTopics,
		Iterations:  cfg.Topics.Iterations,
		TopTerms:    cfg.Topics.TopTerms,
		ExampleDocs: cfg.Topics.ExampleDocs,
	})

	spinner := getSpinner(fmt.Sprintf("Fitting %d topics...", cfg.Topics.NumTopics))
	fitted, tagged, err := modeller.Fit(records)
	spinner.Finish()
	if err != nil {
		return fmt.Errorf("failed to fit topics: %v", err)
	}

	if cfg.Topics.LabelWithLLM {
		engine, err := llm.NewWithConfig(llm.ChatConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			BaseURL:     cfg.LLM.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize chat engine: %v", err)
		}
		fitted = topics.LabelTopics(ctx, engine, fitted)
		tagged = applyTopicLabels(tagged, fitted)
	}

	if err := dataset.WriteTopics(fitted); err != nil {
		return err
	}
	if err := dataset.WriteRecords(store.ScoredFile, tagged); err != nil {
		return err
	}

	for _, topic := range fitted {
		color.Cyan("  topic %d (%.0f%%): %s", topic.ID, topic.Weight*100, topic.Label)
	}
	color.Green("\n✓ Fitted %d topics -> %s", len(fitted), dataset.Path(store.TopicsFile))

	if cfg.Database.URL != "" {
		if err := storeCorpus(ctx, cfg, tagged); err != nil {
			return err
		}
		// With the corpus in the database, replace the positional example
		// documents with semantic nearest neighbours per topic.
		if refreshed, err := representativeExamples(ctx, cfg, fitted); err != nil {
			color.Yellow("could not refresh topic examples: %v", err)
		} else if err := dataset.WriteTopics(refreshed); err != nil {
			return err
		}
	}
	return nil
}

// representativeExamples queries the corpus store for the records closest to
// each topic's term vector and uses them as that topic's examples.
func representativeExamples(ctx context.Context, cfg *cfgPkg.Config, fitted []models.Topic) ([]models.Topic, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	corpus, err := store.NewWithConfig(store.CorpusStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	}, embedder)
	if err != nil {
		return nil, err
	}
	defer corpus.Close()

	for i, topic := range fitted {
		embeddings, err := embedder.Embed(ctx, []string{strings.Join(topic.Terms, " ")})
		if err != nil {
			return nil, err
		}
		records, err := corpus.Similar(ctx, embeddings[0], cfg.Topics.ExampleDocs)
		if err != nil {
			return nil, err
		}
		examples := make([]string, 0, len(records))
		for _, rec := range records {
			examples = append(examples, rec.CleanText)
		}
		if len(examples) > 0 {
			fitted[i].Examples = examples
		}
	}
	return fitted, nil
}

// applyTopicLabels re-propagates labels onto records after LLM relabelling.
func applyTopicLabels(records []models.Record, fitted []models.Topic) []models.Record {
	labels := make(map[int]string, len(fitted))
	for _, t := range fitted {
		labels[t.ID] = t.Label
	}
	for i := range records {
		if label, ok := labels[records[i].TopicID]; ok {
			records[i].TopicLabel = label
		}
	}
	return records
}

func storeCorpus(ctx context.Context, cfg *cfgPkg.Config, records []models.Record) error {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	corpus, err := store.NewWithConfig(store.CorpusStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
		BatchSize:  cfg.Database.BatchSize,
	}, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize corpus store: %v", err)
	}
	defer corpus.Close()

	spinner := getSpinner("Storing records in database...")
	err = corpus.StoreRecords(ctx, store.NewRunID(), records)
	spinner.Finish()
	if err != nil {
		return fmt.Errorf("failed to store records: %v", err)
	}

	color.Green("\n✓ Stored %d records in %s", len(records), cfg.Database.TableName)
	return nil
}

func runForecast(cfg *cfgPkg.Config, dataset store.Dataset) error {
	series, err := dataset.ReadSeries()
	if err != nil {
		return err
	}

	forecaster := forecast.NewWithConfig(forecast.ForecasterConfig{
		MinPoints: cfg.Forecast.MinPoints,
		Alpha:     cfg.Forecast.Alpha,
		Beta:      cfg.Forecast.Beta,
	})

	combined := collapseSources(series)
	points, err := forecaster.Forecast(combined, cfg.Forecast.Horizon)
	if err != nil {
		return fmt.Errorf("failed to forecast: %v", err)
	}

	if alpha, beta, err := forecaster.TrendLine(combined); err == nil {
		direction := "improving"
		if beta < 0 {
			direction = "declining"
		}
		color.Cyan("  trend: %s (intercept %.3f, slope %.5f per bucket)", direction, alpha, beta)
	}

	if err := dataset.WriteForecast(points); err != nil {
		return err
	}
	color.Green("\n✓ Forecast %d points -> %s", len(points), dataset.Path(store.ForecastFile))
	return nil
}

// collapseSources merges the per-source series into one overall series,
// weighting each source's mean by its record count.
func collapseSources(series []models.SentimentPoint) []models.SentimentPoint {
	type acc struct {
		count int
		sum   float64
	}
	byDate := make(map[time.Time]*acc)
	for _, p := range series {
		a, ok := byDate[p.Date]
		if !ok {
			a = &acc{}
			byDate[p.Date] = a
		}
		a.count += p.Count
		a.sum += p.MeanCompound * float64(p.Count)
	}

	out := make([]models.SentimentPoint, 0, len(byDate))
	for date, a := range byDate {
		if a.count == 0 {
			continue
		}
		out = append(out, models.SentimentPoint{
			Date:         date,
			Count:        a.count,
			MeanCompound: a.sum / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
