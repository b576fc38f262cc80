package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/srmops/logibot/internal/config"
	"github.com/srmops/logibot/internal/docstore"
	"github.com/srmops/logibot/internal/logging"
)

// MergedName is the base name of the merged superset and its
// train/validation splits. Merge skips files carrying this name so
// previously merged outputs are never re-merged.
const MergedName = "legacy_ai_complete"

// Builder turns operational records into labeled training datasets.
// It writes one JSON-Lines file per category plus a merged, shuffled
// superset with a 90/10 train/validation split.
type Builder struct {
	store docstore.Store
	cfg   *config.Config
	dir   string
	log   *slog.Logger

	now func() time.Time
	rng *rand.Rand
}

// NewBuilder creates a dataset builder writing into the configured
// dataset directory.
func NewBuilder(store docstore.Store, cfg *config.Config) (*Builder, error) {
	dir := cfg.Paths.DatasetDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	return &Builder{
		store: store,
		cfg:   cfg,
		dir:   dir,
		log:   logging.WithComponent("dataset"),
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (b *Builder) logger(ctx context.Context) *slog.Logger {
	return logging.WithContext(logging.ContextWithComponent(ctx, "dataset"))
}

// SetClock overrides the time source. Used in tests for stable
// timestamped filenames.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// SetRandSeed makes the merge shuffle deterministic. Used in tests.
func (b *Builder) SetRandSeed(seed int64) {
	b.rng = rand.New(rand.NewSource(seed))
}

// Dir returns the dataset directory.
func (b *Builder) Dir() string {
	return b.dir
}

// FetchDrivers reads every driver record from the document store.
// Malformed documents are skipped and counted; a store outage aborts.
func (b *Builder) FetchDrivers(ctx context.Context) ([]Driver, int, error) {
	docs, err := b.store.ListAll(ctx, b.cfg.PublicCollection("drivers"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch drivers: %w", err)
	}

	log := b.logger(ctx)
	var drivers []Driver
	skipped := 0
	for _, doc := range docs {
		driver, err := driverFromDoc(doc)
		if err != nil {
			skipped++
			log.Warn("skipping malformed driver record", "id", doc.ID, "error", err)
			continue
		}
		drivers = append(drivers, driver)
	}

	log.Info("fetched driver records", "count", len(drivers), "skipped", skipped)
	return drivers, skipped, nil
}

// FetchPlants reads every plant record from the document store.
func (b *Builder) FetchPlants(ctx context.Context) ([]Plant, int, error) {
	docs, err := b.store.ListAll(ctx, b.cfg.PublicCollection("plants"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch plants: %w", err)
	}

	log := b.logger(ctx)
	var plants []Plant
	skipped := 0
	for _, doc := range docs {
		plant, err := plantFromDoc(doc)
		if err != nil {
			skipped++
			log.Warn("skipping malformed plant record", "id", doc.ID, "error", err)
			continue
		}
		plants = append(plants, plant)
	}

	log.Info("fetched plant records", "count", len(plants), "skipped", skipped)
	return plants, skipped, nil
}

// driverExamples derives the fixed set of examples for one driver:
// a rate-calculation walkthrough, an availability statement, and a
// cost-per-ton statement.
func (b *Builder) driverExamples(d Driver) []Example {
	r := b.cfg.HaulRate
	examples := make([]Example, 0, 3)

	examples = append(examples, Example{
		Instruction: fmt.Sprintf("Calculate the haul rate for driver %s with a round trip time of %.0f minutes.", d.Name, d.RoundTripMinutes),
		Output: fmt.Sprintf("For %s with %.0f minutes round trip:\nRate = ($%.0f / %.0f mins) × %.0f / %.0f tons = $%.2f\nStatus: %s",
			d.Name, d.RoundTripMinutes, r.Base, r.TimeBase, d.RoundTripMinutes, r.TonBase, d.HaulRate, d.Status),
		Context: "SRM Dispatch - Haul Rate Calculation",
	})

	if d.Status == "active" {
		examples = append(examples, Example{
			Instruction: fmt.Sprintf("Is driver %s available for dispatch?", d.Name),
			Output: fmt.Sprintf("Yes, %s is %s with a haul rate of $%.2f based on %.0f minute round trips.",
				d.Name, d.Status, d.HaulRate, d.RoundTripMinutes),
			Context: "SRM Dispatch - Driver Availability",
		})
	} else {
		examples = append(examples, Example{
			Instruction: fmt.Sprintf("Can we assign %s to a new load?", d.Name),
			Output: fmt.Sprintf("No, %s is currently %s. Consider assigning an active driver.",
				d.Name, d.Status),
			Context: "SRM Dispatch - Driver Availability",
		})
	}

	examples = append(examples, Example{
		Instruction: fmt.Sprintf("What is the cost per ton for %s?", d.Name),
		Output: fmt.Sprintf("Driver %s has a haul rate of $%.2f per %.0f-ton load, which equals $%.2f per ton.",
			d.Name, d.HaulRate, r.TonBase, d.HaulRate/r.TonBase),
		Context: "SRM Dispatch - Cost Analysis",
	})

	return examples
}

// BuildDispatchDataset builds the dispatch-optimization category from
// driver and plant records.
func (b *Builder) BuildDispatchDataset(ctx context.Context) (string, error) {
	drivers, _, err := b.FetchDrivers(ctx)
	if err != nil {
		return "", err
	}
	plants, _, err := b.FetchPlants(ctx)
	if err != nil {
		return "", err
	}

	var examples []Example
	for _, d := range drivers {
		examples = append(examples, b.driverExamples(d)...)
	}

	for _, p := range plants {
		examples = append(examples, Example{
			Instruction: fmt.Sprintf("What plant should I use for deliveries to %s?", p.Location),
			Output:      fmt.Sprintf("For deliveries to %s, use %s (Plant Code: %s).", p.Location, p.Name, p.Code),
			Context:     "SRM Dispatch - Route Planning",
		})
	}

	if len(drivers) >= 3 {
		sorted := make([]Driver, len(drivers))
		copy(sorted, drivers)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].HaulRate < sorted[j].HaulRate })

		var sb strings.Builder
		sb.WriteString("Most cost-effective drivers:\n")
		for i, d := range sorted[:3] {
			fmt.Fprintf(&sb, "%d. %s - $%.2f (%.0f min RTM)\n", i+1, d.Name, d.HaulRate, d.RoundTripMinutes)
		}
		examples = append(examples, Example{
			Instruction: "Which drivers have the most cost-effective haul rates?",
			Output:      sb.String(),
			Context:     "SRM Dispatch - Driver Comparison",
		})
	}

	path := b.datasetPath("dispatch_optimization")
	if err := writeJSONL(path, examples); err != nil {
		return "", err
	}

	b.logger(ctx).Info("created dispatch optimization dataset", "path", path, "examples", len(examples))
	return path, nil
}

// BuildMemoryDataset builds the fixed operations-knowledge category.
// These examples teach the assistant the business rules and the
// expected communication style; they do not depend on live records.
func (b *Builder) BuildMemoryDataset() (string, error) {
	r := b.cfg.HaulRate

	examples := []Example{
		{
			Instruction: "What is the primary mission of LogiBot?",
			Output: "LogiBot's mission is to build fixed-cost local AI infrastructure to replace variable cloud costs. " +
				"The system runs a local model via Ollama, with a document store for persistence and " +
				"spreadsheet ingestion as the data source for SRM Operations.",
			Context: "Operations Memory - System Architecture",
		},
		{
			Instruction: "Explain the haul rate calculation formula.",
			Output: fmt.Sprintf("Haul Rate = ($%.0f / %.0f minutes) × Round Trip Minutes / %.0f tons. "+
				"The result is rounded up to the nearest $%.2f with a minimum of $%.2f. "+
				"This formula ensures fair pricing based on time and tonnage.",
				r.Base, r.TimeBase, r.TonBase, r.RoundIncrement, r.Minimum),
			Context: "Operations Memory - Business Logic",
		},
		{
			Instruction: "What are the document store access rules?",
			Output: "Public data: artifacts/{appId}/public/data/{collectionName}\n" +
				"Private data: artifacts/{appId}/users/{userId}/{collectionName}\n" +
				"CRITICAL: No complex queries. Fetch all documents and filter in memory.",
			Context: "Operations Memory - Data Architecture",
		},
		{
			Instruction: "How should the assistant communicate with dispatch?",
			Output: "Mandatory directness. No apologies. No conversational filler. No summaries. " +
				"No repetition. Prioritize actionable recommendations over explanation.",
			Context: "Operations Memory - Communication Protocol",
		},
		{
			Instruction: "Who operates SRM dispatch?",
			Output: "The dispatch manager at SRM Trucking, who is building LogiBot to eliminate " +
				"recurring cloud costs while maintaining operational efficiency.",
			Context: "Operations Memory - User Profile",
		},
	}

	path := b.datasetPath("operations_memory")
	if err := writeJSONL(path, examples); err != nil {
		return "", err
	}

	b.log.Info("created operations memory dataset", "path", path, "examples", len(examples))
	return path, nil
}

// BuildDecisionDataset builds decision-pattern examples from the
// current driver pool: load assignment and cost/speed tradeoffs.
func (b *Builder) BuildDecisionDataset(ctx context.Context) (string, error) {
	drivers, _, err := b.FetchDrivers(ctx)
	if err != nil {
		return "", err
	}

	var active []Driver
	for _, d := range drivers {
		if d.Status == "active" {
			active = append(active, d)
		}
	}

	var examples []Example

	if len(active) > 0 {
		sorted := make([]Driver, len(active))
		copy(sorted, active)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].HaulRate < sorted[j].HaulRate })
		best := sorted[0]

		examples = append(examples, Example{
			Instruction: fmt.Sprintf("I have a %.0f-ton load going 90 minutes round trip. Which driver should I assign?", b.cfg.HaulRate.TonBase),
			Output: fmt.Sprintf("Assign %s. They have the most cost-effective rate at $%.2f and are currently active. "+
				"For a 90-minute round trip, the cost will be approximately $%.2f.",
				best.Name, best.HaulRate, best.HaulRate),
			Context: "Decision Pattern - Load Assignment",
		})
	}

	if len(active) >= 2 {
		fastest, cheapest := active[0], active[0]
		for _, d := range active[1:] {
			if d.RoundTripMinutes < fastest.RoundTripMinutes {
				fastest = d
			}
			if d.HaulRate < cheapest.HaulRate {
				cheapest = d
			}
		}

		examples = append(examples, Example{
			Instruction: "Should I prioritize cost or speed for this delivery?",
			Output: fmt.Sprintf("For cost optimization: Use %s ($%.2f)\nFor speed: Use %s (%.0f min RTM)\n"+
				"Decision depends on customer priority and deadline constraints.",
				cheapest.Name, cheapest.HaulRate, fastest.Name, fastest.RoundTripMinutes),
			Context: "Decision Pattern - Optimization Strategy",
		})
	}

	path := b.datasetPath("decision_patterns")
	if err := writeJSONL(path, examples); err != nil {
		return "", err
	}

	b.logger(ctx).Info("created decision pattern dataset", "path", path, "examples", len(examples))
	return path, nil
}

// Merge concatenates every category file in the dataset directory,
// shuffles the result, writes the superset, and writes a 90/10
// train/validation split in the shuffled order. Previously merged
// outputs are excluded from the glob.
func (b *Builder) Merge() (string, error) {
	matches, err := filepath.Glob(filepath.Join(b.dir, "*.jsonl"))
	if err != nil {
		return "", fmt.Errorf("failed to glob datasets: %w", err)
	}

	var merged []Example
	sources := 0
	for _, path := range matches {
		if strings.Contains(filepath.Base(path), MergedName) {
			continue // Skip previously merged outputs
		}
		examples, err := readJSONL(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		merged = append(merged, examples...)
		sources++
	}

	b.rng.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})

	timestamp := b.timestamp()
	mergedPath := filepath.Join(b.dir, fmt.Sprintf("%s_%s.jsonl", MergedName, timestamp))
	if err := writeJSONL(mergedPath, merged); err != nil {
		return "", err
	}

	// 90/10 split in the shuffled order; no re-shuffle at split time.
	splitIdx := int(float64(len(merged)) * 0.9)
	trainPath := filepath.Join(b.dir, fmt.Sprintf("%s_train_%s.jsonl", MergedName, timestamp))
	valPath := filepath.Join(b.dir, fmt.Sprintf("%s_val_%s.jsonl", MergedName, timestamp))

	if err := writeJSONL(trainPath, merged[:splitIdx]); err != nil {
		return "", err
	}
	if err := writeJSONL(valPath, merged[splitIdx:]); err != nil {
		return "", err
	}

	b.log.Info("merged datasets",
		"sources", sources,
		"examples", len(merged),
		"train", splitIdx,
		"validation", len(merged)-splitIdx,
		"path", mergedPath,
	)

	return mergedPath, nil
}

// BuildAll runs every category build, the merge, and the metadata
// summary. Returns category name to dataset path.
func (b *Builder) BuildAll(ctx context.Context) (map[string]string, error) {
	log := b.logger(ctx)
	log.Info("starting training data build", "dir", b.dir)

	results := make(map[string]string)

	dispatch, err := b.BuildDispatchDataset(ctx)
	if err != nil {
		return nil, err
	}
	results["dispatch_optimization"] = dispatch

	memory, err := b.BuildMemoryDataset()
	if err != nil {
		return nil, err
	}
	results["operations_memory"] = memory

	decisions, err := b.BuildDecisionDataset(ctx)
	if err != nil {
		return nil, err
	}
	results["decision_patterns"] = decisions

	merged, err := b.Merge()
	if err != nil {
		return nil, err
	}
	results["merged_dataset"] = merged

	meta, err := b.WriteMetadata()
	if err != nil {
		return nil, err
	}

	log.Info("training data build complete", "total_examples", meta.TotalExamples)
	return results, nil
}

// datasetPath returns a timestamped path for a category file.
func (b *Builder) datasetPath(category string) string {
	return filepath.Join(b.dir, fmt.Sprintf("%s_%s.jsonl", category, b.timestamp()))
}

func (b *Builder) timestamp() string {
	return b.now().UTC().Format("20060102_150405")
}

// writeJSONL writes examples as one JSON object per line.
func writeJSONL(path string, examples []Example) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("failed to encode example: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// readJSONL reads a JSON-Lines dataset file.
func readJSONL(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var examples []Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			return nil, fmt.Errorf("malformed line in %s: %w", path, err)
		}
		examples = append(examples, ex)
	}
	return examples, scanner.Err()
}
