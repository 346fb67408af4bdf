package pipeline

import (
	"time"

	"github.com/soypete/autopilot/pkg/config"
	"github.com/soypete/autopilot/pkg/credits"
)

// Options tunes a pipeline. It is copied into the pipeline at construction
// and never changed afterwards.
type Options struct {
	ResearchTemperature float64
	ResearchMaxTokens   int
	WriterTemperature   float64
	WriterMaxTokens     int
	MinContentLength    int

	MaxAffiliateSelect int
	MaxInternalSelect  int
	MaxAffiliateWeave  int
	MaxInternalInsert  int
	MaxCandidates      int
	SitemapLimit       int
	KnowledgeLimit     int

	ImageSize        string
	ImageStyle       string
	ImageQuality     string
	ImageConcurrency int
	RefineImages     bool

	Heartbeat time.Duration
	Timeout   time.Duration

	DefaultWordCount   int
	WordCountTolerance int
	BannedWords        []string
	Costs              credits.CostTable
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		ResearchTemperature: 0.3,
		ResearchMaxTokens:   2000,
		WriterTemperature:   0.8,
		WriterMaxTokens:     8000,
		MinContentLength:    100,
		MaxAffiliateSelect:  4,
		MaxInternalSelect:   5,
		MaxAffiliateWeave:   3,
		MaxInternalInsert:   3,
		MaxCandidates:       40,
		SitemapLimit:        200,
		KnowledgeLimit:      5,
		ImageSize:           "1792x1024",
		ImageStyle:          "natural",
		ImageQuality:        "standard",
		ImageConcurrency:    3,
		Heartbeat:           15 * time.Second,
		Timeout:             5 * time.Minute,
		DefaultWordCount:    1500,
		WordCountTolerance:  300,
		Costs:               credits.DefaultCosts,
	}
}

// OptionsFromConfig converts loaded configuration into pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	o := DefaultOptions()
	p := cfg.Pipeline

	o.ResearchTemperature = p.ResearchTemperature
	o.ResearchMaxTokens = p.ResearchMaxTokens
	o.WriterTemperature = p.WriterTemperature
	o.WriterMaxTokens = p.WriterMaxTokens
	o.MinContentLength = p.MinContentLength
	o.MaxAffiliateSelect = p.MaxAffiliateSelect
	o.MaxInternalSelect = p.MaxInternalSelect
	o.MaxAffiliateWeave = p.MaxAffiliateWeave
	o.MaxInternalInsert = p.MaxInternalInsert
	o.SitemapLimit = p.SitemapLimit
	o.Heartbeat = cfg.HeartbeatInterval()
	o.Timeout = cfg.PipelineTimeout()
	o.DefaultWordCount = p.DefaultWordCount
	o.WordCountTolerance = p.WordCountTolerance
	o.BannedWords = append([]string(nil), p.BannedWords...)

	o.ImageSize = cfg.Images.Size
	o.ImageStyle = cfg.Images.Style
	o.ImageQuality = cfg.Images.Quality
	o.ImageConcurrency = cfg.Images.Concurrency
	o.RefineImages = cfg.Images.RefinePrompts

	o.Costs = credits.CostTable{
		BlogPost:    cfg.Credits.BlogPost,
		Publish:     cfg.Credits.Publish,
		SocialPost:  cfg.Credits.SocialPost,
		VideoScript: cfg.Credits.VideoScript,
	}
	return o
}
