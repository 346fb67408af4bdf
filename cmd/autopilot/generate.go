package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soypete/autopilot/pkg/article"
	"github.com/soypete/autopilot/pkg/progress"
	"github.com/soypete/autopilot/pkg/storage"
)

type generateFlags struct {
	requestFile string
	server      string
	account     string

	topic       string
	keywords    []string
	words       int
	language    string
	contentType string
	tone        string
	project     string
	idea        string
	images      int
	featured    bool
	faq         bool
	affiliates  bool
	internal    bool
	publish     bool
}

func generateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one article and print progress as NDJSON",
		Long: `Generate one article and print every progress event as a JSON line.

Runs the pipeline in-process, or against a running server with --server.

Examples:
  autopilot generate --account acc-1 --topic "Beste koffiezetapparaten" --keywords koffie,filter
  autopilot generate --request req.json --server http://localhost:8080 --account acc-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if f.server != "" {
				return remoteGenerate(ctx, f.server, f.account, req, cmd.OutOrStdout())
			}
			return localGenerate(ctx, f.account, req, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&f.requestFile, "request", "r", "", "JSON request file; flags override its fields")
	cmd.Flags().StringVar(&f.server, "server", "", "Base URL of an autopilot server to generate on")
	cmd.Flags().StringVarP(&f.account, "account", "a", "", "Account id to charge")
	cmd.Flags().StringVarP(&f.topic, "topic", "t", "", "Article topic")
	cmd.Flags().StringSliceVarP(&f.keywords, "keywords", "k", nil, "Comma-separated keywords")
	cmd.Flags().IntVar(&f.words, "words", 0, "Target word count (default 1500)")
	cmd.Flags().StringVar(&f.language, "language", "", "Language tag (default nl)")
	cmd.Flags().StringVar(&f.contentType, "type", "", "Content type: listicle, how-to, guide, product-review, comparison, product-list")
	cmd.Flags().StringVar(&f.tone, "tone", "", "Tone of voice")
	cmd.Flags().StringVar(&f.project, "project", "", "Project id for links, tone and publishing")
	cmd.Flags().StringVar(&f.idea, "idea", "", "Article idea id to generate from")
	cmd.Flags().IntVar(&f.images, "images", 0, "Number of inline images")
	cmd.Flags().BoolVar(&f.featured, "featured-image", false, "Generate a featured image")
	cmd.Flags().BoolVar(&f.faq, "faq", false, "End with a FAQ section")
	cmd.Flags().BoolVar(&f.affiliates, "affiliate-links", false, "Work in the project's affiliate links")
	cmd.Flags().BoolVar(&f.internal, "internal-links", false, "Link to pages of the project website")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Publish after generation")
	return cmd
}

// request builds the article request from the file and the flags.
func (f *generateFlags) request() (article.Request, error) {
	var req article.Request
	if f.requestFile != "" {
		data, err := os.ReadFile(f.requestFile)
		if err != nil {
			return req, fmt.Errorf("failed to read request file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("failed to parse request file: %w", err)
		}
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&req.Topic, f.topic)
	setString(&req.Language, f.language)
	setString(&req.Tone, f.tone)
	setString(&req.ProjectID, f.project)
	setString(&req.ArticleIdeaID, f.idea)
	if f.contentType != "" {
		req.ContentType = article.ContentType(f.contentType)
	}
	if len(f.keywords) > 0 {
		req.Keywords = f.keywords
	}
	if f.words > 0 {
		req.WordCountTarget = f.words
	}
	if f.images > 0 {
		req.Features.IncludeImages = true
		req.Features.ImageCount = f.images
	}
	req.Features.IncludeFeaturedImage = req.Features.IncludeFeaturedImage || f.featured
	if req.Features.IncludeFeaturedImage {
		req.Features.IncludeImages = true
	}
	req.Features.IncludeFAQ = req.Features.IncludeFAQ || f.faq
	req.Features.IncludeAffiliateLinks = req.Features.IncludeAffiliateLinks || f.affiliates
	req.Features.IncludeInternalLinks = req.Features.IncludeInternalLinks || f.internal
	req.Features.Publish = req.Features.Publish || f.publish

	if strings.TrimSpace(req.Topic) == "" {
		return req, errors.New("a topic is required (--topic or --request)")
	}
	return req, nil
}

// localGenerate runs the pipeline in-process. With the memory store an
// unlimited local account is created when none is given.
func localGenerate(ctx context.Context, accountID string, req article.Request, out io.Writer) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if accountID == "" {
		if _, ok := a.store.(*storage.MemoryStore); !ok {
			return errors.New("--account is required with a database store")
		}
		acc := &storage.Account{Email: "local@autopilot", Unlimited: true}
		if err := a.store.CreateAccount(ctx, acc); err != nil {
			return err
		}
		accountID = acc.ID
	}
	req.AccountID = accountID

	job, req, err := a.pipeline.Prepare(ctx, req)
	if err != nil {
		return err
	}

	stream := progress.NewStream(out, job.ID)
	defer stream.Close()
	_, err = a.pipeline.Execute(ctx, job.ID, req, stream)
	return err
}

// remoteGenerate posts req to a server and relays its NDJSON stream.
func remoteGenerate(ctx context.Context, server, accountID string, req article.Request, out io.Writer) error {
	if accountID == "" {
		return errors.New("--account is required with --server")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(server, "/")+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	httpReq.Header.Set("X-Account-ID", accountID)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	return relay(resp.Body, out)
}

// relay copies events from r to out and reports a failed or truncated run
// as an error.
func relay(r io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	var terminal *progress.Event
	err := progress.ReadAll(r, func(e progress.Event) error {
		if e.Terminal() {
			t := e
			terminal = &t
		}
		return enc.Encode(e)
	})
	if err != nil {
		return err
	}
	switch {
	case terminal == nil:
		return errors.New("stream ended before the run finished")
	case terminal.Status == progress.StatusError:
		return fmt.Errorf("generation failed: %s", terminal.Error)
	}
	return nil
}
