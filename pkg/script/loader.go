package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Loader discovers glue units beneath the configured glue paths and runs
// them through the engine. Source resolution is two-tier: a plain path is
// tried on the filesystem first and retried with the classpath scheme when
// unresolvable; only failure of both tiers is an error.
type Loader struct {
	engine    *Engine
	resources ResourceLoader
	units     *UnitRegistry
	logger    zerolog.Logger
}

// NewLoader creates a loader. units may be nil when no precompiled glue is
// registered.
func NewLoader(engine *Engine, resources ResourceLoader, units *UnitRegistry, logger zerolog.Logger) *Loader {
	if units == nil {
		units = NewUnitRegistry()
	}
	return &Loader{
		engine:    engine,
		resources: resources,
		units:     units,
		logger:    logger.With().Str("component", "glue-loader").Logger(),
	}
}

// LoadGlue loads every glue path. Any resolution, read, compile or
// execution failure is fatal to the whole load; there is no partial-load
// recovery.
func (l *Loader) LoadGlue(ctx context.Context, gluePaths []string) error {
	for _, p := range gluePaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.loadPath(p); err != nil {
			return err
		}
	}
	l.logger.Info().Int("paths", len(gluePaths)).Msg("Glue loaded")
	return nil
}

func (l *Loader) loadPath(gluePath string) error {
	resources, err := l.resources.Resources(gluePath, SourceSuffix)
	if errors.Is(err, ErrUnresolvable) && !strings.HasPrefix(gluePath, ClasspathScheme) {
		// Second tier: the same path addressed as a classpath resource.
		resources, err = l.resources.Resources(ClasspathScheme+gluePath, SourceSuffix)
	}
	if err != nil {
		return fmt.Errorf("resolve glue path %s: %w", gluePath, err)
	}

	for _, r := range resources {
		if err := l.execResource(r); err != nil {
			return err
		}
	}

	for _, u := range l.units.Descendants(PackageKey(gluePath)) {
		l.logger.Debug().Str("unit", u.Name()).Str("path", gluePath).Msg("Running compiled glue unit")
		if err := l.engine.RunUnit(u); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) execResource(r Resource) error {
	rc, err := r.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", r.Path(), err)
	}
	src, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", r.Path(), err)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", r.Path(), closeErr)
	}

	l.logger.Debug().Str("unit", r.Path()).Msg("Executing glue source")
	return l.engine.ExecSource(r.Path(), src)
}
