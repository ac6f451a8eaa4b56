// Package semrel decides releases from conventional-commit history, the way
// a semantic-release service does: find the last release tag, classify every
// commit since it, and derive the next version from the strongest change.
package semrel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	conventionalcommits "github.com/leodido/go-conventionalcommits"
	ccparser "github.com/leodido/go-conventionalcommits/parser"
	"golang.org/x/mod/semver"

	"github.com/loopforge/conveyor/internal/logging"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/ports"
)

type bump int

const (
	bumpNone bump = iota
	bumpPatch
	bumpMinor
	bumpMajor
)

// Decider implements ports.ReleaseDecider over a local git repository.
type Decider struct {
	path           string
	tagPrefix      string
	initialVersion string
	logger         *slog.Logger
}

// Option configures the decider.
type Option func(*Decider)

// WithTagPrefix sets the release tag prefix (default "v").
func WithTagPrefix(prefix string) Option {
	return func(d *Decider) { d.tagPrefix = prefix }
}

// WithInitialVersion sets the version of the very first release (default "0.1.0").
func WithInitialVersion(v string) Option {
	return func(d *Decider) { d.initialVersion = v }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decider) { d.logger = logger }
}

// NewDecider creates a decider for the repository at path.
func NewDecider(path string, opts ...Option) *Decider {
	d := &Decider{
		path:           path,
		tagPrefix:      "v",
		initialVersion: "0.1.0",
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ ports.ReleaseDecider = (*Decider)(nil)

// Decide walks the history reachable from the trigger commit back to the
// latest release tag and derives the next version from the conventional
// commits in between. Unreadable repositories or unresolvable commits fail
// with domain.ErrGateUnavailable: no release is ever assumed on ambiguous
// input.
func (d *Decider) Decide(ctx context.Context, trigger domain.Trigger) (ports.Decision, error) {
	repo, err := git.PlainOpen(d.path)
	if err != nil {
		return ports.Decision{}, fmt.Errorf("%w: opening repository %q: %v", domain.ErrGateUnavailable, d.path, err)
	}

	lastTag, lastHash, err := d.latestReleaseTag(repo)
	if err != nil {
		return ports.Decision{}, err
	}

	messages, err := d.messagesSince(ctx, repo, trigger.Commit, lastHash)
	if err != nil {
		return ports.Decision{}, err
	}

	change := classify(messages)
	if change == bumpNone {
		d.logger.Debug("no release-worthy commits since last release", "last_tag", lastTag, "commits", len(messages))
		return ports.Decision{}, nil
	}

	var next string
	if lastTag == "" {
		next = d.initialVersion
	} else {
		next, err = nextVersion(strings.TrimPrefix(lastTag, d.tagPrefix), change)
		if err != nil {
			return ports.Decision{}, fmt.Errorf("%w: %v", domain.ErrGateUnavailable, err)
		}
	}

	d.logger.Info("release warranted", "last_tag", lastTag, "next", next, "commits", len(messages))
	return ports.Decision{ReleaseCreated: true, Version: next}, nil
}

// latestReleaseTag returns the highest semver tag carrying the configured
// prefix and the commit it points at. A repository with no release tags is
// not an error: every commit is then in scope and the first release gets
// the initial version.
func (d *Decider) latestReleaseTag(repo *git.Repository) (string, plumbing.Hash, error) {
	iter, err := repo.Tags()
	if err != nil {
		return "", plumbing.ZeroHash, fmt.Errorf("%w: listing tags: %v", domain.ErrGateUnavailable, err)
	}
	defer iter.Close()

	var bestTag string
	var bestHash plumbing.Hash
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !strings.HasPrefix(name, d.tagPrefix) {
			return nil
		}
		version := "v" + strings.TrimPrefix(name, d.tagPrefix)
		if !semver.IsValid(version) {
			return nil
		}
		if bestTag != "" && semver.Compare(version, "v"+strings.TrimPrefix(bestTag, d.tagPrefix)) <= 0 {
			return nil
		}

		hash := ref.Hash()
		// Annotated tags point at a tag object, not the commit.
		if tagObj, tagErr := repo.TagObject(hash); tagErr == nil {
			hash = tagObj.Target
		}
		bestTag = name
		bestHash = hash
		return nil
	})
	if err != nil {
		return "", plumbing.ZeroHash, fmt.Errorf("%w: resolving tags: %v", domain.ErrGateUnavailable, err)
	}
	return bestTag, bestHash, nil
}

// messagesSince collects commit messages from the trigger commit back to
// (excluding) the last release commit.
func (d *Decider) messagesSince(ctx context.Context, repo *git.Repository, from string, until plumbing.Hash) ([]string, error) {
	hash := plumbing.NewHash(from)
	iter, err := repo.Log(&git.LogOptions{From: hash})
	if err != nil {
		return nil, fmt.Errorf("%w: commit %q unreachable: %v", domain.ErrGateUnavailable, from, err)
	}
	defer iter.Close()

	var messages []string
	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.Hash == until {
			return storer.ErrStop
		}
		messages = append(messages, c.Message)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking history: %v", domain.ErrGateUnavailable, err)
	}
	return messages, nil
}

// classify derives the strongest bump across the commit messages.
// Messages that are not conventional commits contribute nothing, mirroring
// how release tooling skips merge and housekeeping commits.
func classify(messages []string) bump {
	machine := ccparser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesConventional))

	strongest := bumpNone
	for _, msg := range messages {
		subject, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
		res, err := machine.Parse([]byte(subject))
		if err != nil {
			continue
		}
		cc, ok := res.(*conventionalcommits.ConventionalCommit)
		if !ok || !cc.Ok() {
			continue
		}

		b := bumpNone
		switch {
		case cc.IsBreakingChange() || breakingFooter(msg):
			b = bumpMajor
		case cc.Type == "feat":
			b = bumpMinor
		case cc.Type == "fix" || cc.Type == "perf":
			b = bumpPatch
		}
		if b > strongest {
			strongest = b
		}
	}
	return strongest
}

// breakingFooter detects a BREAKING CHANGE footer in the full message body,
// which the subject-line parse cannot see.
func breakingFooter(msg string) bool {
	return strings.Contains(msg, "BREAKING CHANGE:") || strings.Contains(msg, "BREAKING-CHANGE:")
}

// nextVersion bumps a previous "MAJOR.MINOR.PATCH" version.
func nextVersion(prev string, change bump) (string, error) {
	parts := strings.SplitN(prev, ".", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("previous version %q is not MAJOR.MINOR.PATCH", prev)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", fmt.Errorf("previous version %q is not numeric: %v", prev, err)
		}
		nums[i] = n
	}

	switch change {
	case bumpMajor:
		nums[0], nums[1], nums[2] = nums[0]+1, 0, 0
	case bumpMinor:
		nums[1], nums[2] = nums[1]+1, 0
	case bumpPatch:
		nums[2]++
	}
	return fmt.Sprintf("%d.%d.%d", nums[0], nums[1], nums[2]), nil
}
