package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v50/github"
	"go.uber.org/zap"

	"lpIncentives/internal/retry"
)

// GitHubConfig points at the repository branch holding the snapshots.
type GitHubConfig struct {
	Owner   string
	Repo    string
	Branch  string
	Token   string
	BaseURL string
	Retry   retry.Policy
}

// GitHubPublisher commits snapshots to a branch through the git data API.
type GitHubPublisher struct {
	cfg    GitHubConfig
	client *github.Client
	logger *zap.Logger
}

type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

func NewGitHubPublisher(cfg GitHubConfig, logger *zap.Logger) (*GitHubPublisher, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{}
	if cfg.Token != "" {
		httpClient.Transport = &tokenTransport{token: cfg.Token, base: http.DefaultTransport}
	}
	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = base
	}

	return &GitHubPublisher{cfg: cfg, client: client, logger: logger}, nil
}

// Fetch downloads name from the branch head.
func (g *GitHubPublisher) Fetch(ctx context.Context, name string) ([]byte, error) {
	var out []byte
	err := retry.Do(ctx, g.cfg.Retry, func(ctx context.Context) error {
		file, _, resp, err := g.client.Repositories.GetContents(ctx, g.cfg.Owner, g.cfg.Repo, name, &github.RepositoryContentGetOptions{Ref: g.cfg.Branch})
		if err != nil {
			return classify(resp, err)
		}
		if file == nil {
			return retry.Permanent(fmt.Errorf("%s is a directory", name))
		}

		// files over 1MB come back without inline content
		if file.GetEncoding() == "none" {
			blob, resp, err := g.client.Git.GetBlobRaw(ctx, g.cfg.Owner, g.cfg.Repo, file.GetSHA())
			if err != nil {
				return classify(resp, err)
			}
			out = blob
			return nil
		}
		content, err := file.GetContent()
		if err != nil {
			return retry.Permanent(fmt.Errorf("decode %s: %w", name, err))
		}
		out = []byte(content)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return out, nil
}

// Publish commits all files in one commit on top of the branch head.
func (g *GitHubPublisher) Publish(ctx context.Context, message string, files []File) error {
	if len(files) == 0 {
		return nil
	}
	branchRef := "heads/" + g.cfg.Branch

	return retry.Do(ctx, g.cfg.Retry, func(ctx context.Context) error {
		ref, resp, err := g.client.Git.GetRef(ctx, g.cfg.Owner, g.cfg.Repo, branchRef)
		if err != nil {
			return classify(resp, err)
		}
		headSHA := ref.GetObject().GetSHA()

		head, resp, err := g.client.Git.GetCommit(ctx, g.cfg.Owner, g.cfg.Repo, headSHA)
		if err != nil {
			return classify(resp, err)
		}

		entries := make([]*github.TreeEntry, 0, len(files))
		for _, f := range files {
			entries = append(entries, &github.TreeEntry{
				Path:    github.String(f.Name),
				Mode:    github.String("100644"),
				Type:    github.String("blob"),
				Content: github.String(string(f.Content)),
			})
		}
		tree, resp, err := g.client.Git.CreateTree(ctx, g.cfg.Owner, g.cfg.Repo, head.GetTree().GetSHA(), entries)
		if err != nil {
			return classify(resp, err)
		}

		commit, resp, err := g.client.Git.CreateCommit(ctx, g.cfg.Owner, g.cfg.Repo, &github.Commit{
			Message: github.String(message),
			Tree:    &github.Tree{SHA: tree.SHA},
			Parents: []*github.Commit{{SHA: github.String(headSHA)}},
		})
		if err != nil {
			return classify(resp, err)
		}

		_, resp, err = g.client.Git.UpdateRef(ctx, g.cfg.Owner, g.cfg.Repo, &github.Reference{
			Ref:    github.String("refs/" + branchRef),
			Object: &github.GitObject{SHA: commit.SHA},
		}, false)
		if err != nil {
			return classify(resp, err)
		}

		g.logger.Info("snapshot committed",
			zap.String("repo", g.cfg.Owner+"/"+g.cfg.Repo),
			zap.String("branch", g.cfg.Branch),
			zap.String("commit", commit.GetSHA()),
			zap.Int("files", len(files)),
		)
		return nil
	})
}

// classify maps API failures onto retry decisions.
func classify(resp *github.Response, err error) error {
	if resp == nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(fmt.Errorf("%w: %v", ErrNotFound, err))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return err
	default:
		return retry.Permanent(err)
	}
}
