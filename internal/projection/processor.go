package projection

import (
	"context"
	"log/slog"
	"slices"

	"projtrace/internal/config"
	"projtrace/internal/diffimage"
	"projtrace/internal/infostore"
	"projtrace/internal/logging"
	"projtrace/internal/ptcache"
	"projtrace/internal/services"
	"projtrace/internal/version"
)

// Processor owns the record of one image and runs the pipeline against it.
type Processor struct {
	image     *diffimage.Image
	imagePath string
	rec       *infostore.Record
	cache     *ptcache.Store
	opts      Options
	logger    *slog.Logger
}

// Params describes a Processor. Record and Cache are optional; without a
// cache nothing is persisted.
type Params struct {
	Image     *diffimage.Image
	ImagePath string
	Record    *infostore.Record
	Cache     *ptcache.Store
	Options   Options
	Logger    *slog.Logger
}

// New builds a processor over an in-memory image.
func New(p Params) (*Processor, error) {
	if p.Image == nil || p.Image.Width == 0 || p.Image.Height == 0 {
		return nil, services.Wrap(services.ErrValidation, "projection", "new", "image is empty", nil)
	}
	if p.Cache != nil && p.ImagePath == "" {
		return nil, services.Wrap(services.ErrValidation, "projection", "new", "cache requires an image path", nil)
	}
	rec := p.Record
	if rec == nil {
		rec = infostore.New()
	}
	if p.Options == (Options{}) {
		p.Options = DefaultOptions()
	}
	return &Processor{
		image:     p.Image,
		imagePath: p.ImagePath,
		rec:       rec,
		cache:     p.Cache,
		opts:      p.Options,
		logger:    logging.NewComponentLogger(p.Logger, "projection"),
	}, nil
}

// Open loads the image at imagePath together with its cached record.
func Open(ctx context.Context, imagePath string, cfg *config.Config, logger *slog.Logger) (*Processor, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	ctx = services.WithImage(ctx, imagePath)

	img, err := diffimage.Load(imagePath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "projection", "open", "load image", err)
	}
	store := ptcache.New(cfg.Paths.CacheDirName, version.Current(), logger)
	rec, cached, err := store.Load(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	p, err := New(Params{
		Image:     img,
		ImagePath: imagePath,
		Record:    rec,
		Cache:     store,
		Options:   OptionsFromConfig(cfg),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, p.logger).Debug("opened image",
		logging.Int("width", img.Width),
		logging.Int("height", img.Height),
		logging.Bool("cached", cached))
	return p, nil
}

// Record returns a copy of the current record.
func (p *Processor) Record() *infostore.Record {
	return p.rec.Clone()
}

// ImagePath returns the path the processor was opened with, if any.
func (p *Processor) ImagePath() string { return p.imagePath }

// Image returns the analysed image. Callers must not modify it.
func (p *Processor) Image() *diffimage.Image { return p.image }

// Report lists, per stage, the boxes a Process call computed.
type Report struct {
	Computed map[infostore.Stage][]string
	Saved    bool
}

func (r *Report) add(stage infostore.Stage, box string) {
	if r.Computed == nil {
		r.Computed = map[infostore.Stage][]string{}
	}
	r.Computed[stage] = append(r.Computed[stage], box)
}

// Ran reports whether stage was computed for box.
func (r Report) Ran(stage infostore.Stage, box string) bool {
	return slices.Contains(r.Computed[stage], box)
}

// Count returns how many boxes computed stage.
func (r Report) Count(stage infostore.Stage) int {
	return len(r.Computed[stage])
}

// Empty reports whether nothing was computed.
func (r Report) Empty() bool {
	for _, boxes := range r.Computed {
		if len(boxes) > 0 {
			return false
		}
	}
	return true
}

// Process merges s into the record, computes every missing artifact and
// saves the record. Invalid settings are rejected with services.ErrValidation
// before anything changes.
func (p *Processor) Process(ctx context.Context, s Settings) (Report, error) {
	if p.imagePath != "" {
		ctx = services.WithImage(ctx, p.imagePath)
	}
	logger := logging.WithContext(ctx, p.logger)

	next := p.rec.Clone()
	if err := p.merge(next, s); err != nil {
		return Report{}, err
	}
	p.rec = next

	var report Report
	p.computeHistograms(ctx, &report)
	if err := p.applyConvexHull(ctx, &report); err != nil {
		return report, err
	}
	p.fitModels(ctx, &report)
	p.subtractBackgrounds(ctx, &report)
	if err := p.computePeakInfos(ctx, &report); err != nil {
		return report, err
	}

	if p.cache != nil {
		if err := p.cache.Save(ctx, p.imagePath, p.rec); err != nil {
			return report, err
		}
		report.Saved = true
	}

	logger.Info("projection processed",
		logging.Int("boxes", len(p.rec.Boxes)),
		logging.Int("fits", report.Count(infostore.StageFit)),
		logging.Bool("saved", report.Saved))
	return report, nil
}
