package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conveyor-ci/conveyor/domain"
	"github.com/conveyor-ci/conveyor/gate"
	"github.com/conveyor-ci/conveyor/report"
	"github.com/conveyor-ci/conveyor/runner"
	"github.com/conveyor-ci/conveyor/scheduler"
	"github.com/conveyor-ci/conveyor/tag"
)

// validate runs every configured check, parses all reports, and computes
// the gate decision. The decision waits for the complete report set; no
// partial set ever reaches the gate. Checker output is logged verbatim so
// a stopped run can be inspected.
func (p *Pipeline) validate(rc *scheduler.RunContext) error {
	subs := rc.Substitutions()
	reports := make([]*domain.Report, 0, len(p.opts.Checks))

	for _, check := range p.opts.Checks {
		result, err := p.runner.Run(rc.Ctx, check.Invocation, subs, p.runnerOptions()...)
		if err != nil {
			return fmt.Errorf("validation check %q: %w", check.Invocation.Name, err)
		}

		rc.Log.Debug("checker output",
			zap.String("check", check.Invocation.Name),
			zap.String("stdout", result.Stdout),
			zap.String("stderr", result.Stderr))

		var rep *domain.Report
		if check.JSONReport {
			rep, err = report.ParseJSON([]byte(result.Stdout), report.Kind(check.Kind))
		} else {
			rep, err = report.Parse(result.Stdout+"\n"+result.Stderr, report.Kind(check.Kind))
		}
		if err != nil {
			return fmt.Errorf("validation check %q: %w", check.Invocation.Name, err)
		}
		reports = append(reports, rep)
	}

	decision, err := gate.Evaluate(rc.Revision, reports)
	if err != nil {
		return fmt.Errorf("gate evaluation: %w", err)
	}
	rc.SetDecision(decision)

	if !decision.Proceed {
		rc.Log.Warn("gate closed",
			zap.Any("counters", decision.Counters),
			zap.String("revision", rc.Revision.Short))
	}
	return nil
}

// export runs the independent export jobs concurrently, collects their
// declared outputs, and seals each category in the artifact store.
func (p *Pipeline) export(rc *scheduler.RunContext) error {
	subs := rc.Substitutions()

	g, gctx := errgroup.WithContext(rc.Ctx)
	for _, job := range p.opts.Exports {
		g.Go(func() error {
			expanded, err := runner.ExpandInvocation(job.Invocation, subs)
			if err != nil {
				return err
			}

			if _, err := p.runner.Run(gctx, job.Invocation, subs, p.runnerOptions()...); err != nil {
				return fmt.Errorf("export job %q: %w", job.Invocation.Name, err)
			}

			for _, path := range expanded.Outputs {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("export job %q: collecting %q: %w",
						job.Invocation.Name, path, err)
				}
				name := filepath.Base(path)
				if err := rc.Store.Put(gctx, rc.Revision.Short, job.Category, name, data); err != nil {
					return fmt.Errorf("export job %q: %w", job.Invocation.Name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// all jobs done; seal every category exactly once
	sealed := make(map[string]bool)
	for _, job := range p.opts.Exports {
		if sealed[job.Category] {
			continue
		}
		if err := rc.Store.Seal(rc.Ctx, rc.Revision.Short, job.Category); err != nil {
			return fmt.Errorf("sealing %q: %w", job.Category, err)
		}
		sealed[job.Category] = true
	}
	return nil
}

// publish pulls the exported bundle, allocates the next tag, renders the
// release body, and hands the release to the publishing backend.
func (p *Pipeline) publish(rc *scheduler.RunContext) error {
	categories, err := rc.Store.List(rc.Ctx, rc.Revision.Short)
	if err != nil {
		return fmt.Errorf("listing bundle: %w", err)
	}

	var assets []domain.Asset
	var previews []domain.Asset
	for _, category := range categories {
		blobs, err := rc.Store.Get(rc.Ctx, rc.Revision.Short, category)
		if err != nil {
			return fmt.Errorf("pulling %q: %w", category, err)
		}
		for _, blob := range blobs {
			asset := domain.Asset{Name: blob.Name, Category: category, Data: blob.Data}
			assets = append(assets, asset)
			if category == domain.CategoryPreview {
				previews = append(previews, asset)
			}
		}
	}

	allocated, err := tag.Allocate(rc.Ctx, p.opts.Scheme, p.history, p.reserver, p.opts.TagRetries)
	if err != nil {
		return fmt.Errorf("allocating tag: %w", err)
	}

	rel := domain.ReleaseRecord{
		Tag:        allocated,
		Revision:   rc.Revision,
		Title:      fmt.Sprintf("Build %s (%s)", allocated.Label, rc.Revision.Short),
		Body:       p.renderBody(rc, allocated, previews),
		Categories: categories,
		Draft:      p.opts.Draft,
		Prerelease: p.opts.Prerelease,
	}

	id, err := p.publisher.Publish(rc.Ctx, rel, assets)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", allocated.Label, err)
	}
	rel.PublishedID = id
	rc.SetRelease(&rel)

	rc.Log.Info("release published",
		zap.String("tag", allocated.Label),
		zap.String("id", id),
		zap.Strings("categories", categories))
	return nil
}

// renderBody builds the release description. Preview images are hosted
// first; a failed upload degrades to an omitted image line and a warning,
// never to a broken reference or an aborted publish.
func (p *Pipeline) renderBody(rc *scheduler.RunContext, t domain.Tag, previews []domain.Asset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automated build %s\n\n", t.Label)
	fmt.Fprintf(&b, "Revision: %s (`%s`)\n", rc.Revision.Short, rc.Revision.Long)
	fmt.Fprintf(&b, "Branch: %s\n", rc.Branch)

	if p.images == nil {
		return b.String()
	}
	for _, preview := range previews {
		url, err := p.images.Upload(rc.Ctx, preview.Name, preview.Data)
		if err != nil {
			rc.Log.Warn("image host upload failed, omitting image",
				zap.String("image", preview.Name),
				zap.Error(err))
			continue
		}
		fmt.Fprintf(&b, "\n![%s](%s)\n", preview.Name, url)
	}
	return b.String()
}

// postProcess feeds the fabrication artifacts to the configured external
// post-processor. It depends on export only and runs concurrently with
// publish.
func (p *Pipeline) postProcess(rc *scheduler.RunContext) error {
	blobs, err := rc.Store.Get(rc.Ctx, rc.Revision.Short, domain.CategoryFabrication)
	if err != nil {
		return fmt.Errorf("pulling fabrication bundle: %w", err)
	}

	dir, err := os.MkdirTemp("", "conveyor-postprocess-")
	if err != nil {
		return fmt.Errorf("staging fabrication bundle: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	for _, blob := range blobs {
		if err := os.WriteFile(filepath.Join(dir, blob.Name), blob.Data, 0o644); err != nil {
			return fmt.Errorf("staging %q: %w", blob.Name, err)
		}
	}

	_, err = p.runner.Run(rc.Ctx, *p.opts.PostProcess, rc.Substitutions(),
		append(p.runnerOptions(), runner.WithWorkingDir(dir))...)
	if err != nil {
		return fmt.Errorf("post-process: %w", err)
	}
	return nil
}
