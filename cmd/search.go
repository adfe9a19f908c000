package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/communitykit/unisearch/pkg/config"
	"github.com/communitykit/unisearch/pkg/index"
	"github.com/communitykit/unisearch/pkg/log"
	"github.com/communitykit/unisearch/pkg/query"
	"github.com/communitykit/unisearch/pkg/storage"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the content index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search term (quote for exact phrases)",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Tag to filter by (repeatable)",
			},
			&cli.StringFlag{
				Name:  "method",
				Usage: "How term and tags combine: term, tags, or, and",
				Value: "or",
			},
			&cli.StringSliceFlag{
				Name:  "class",
				Usage: "Content class to include (repeatable), e.g. forums.Topic",
			},
			&cli.Int64SliceFlag{
				Name:  "author",
				Usage: "Author member id (repeatable)",
			},
			&cli.Int64SliceFlag{
				Name:  "club",
				Usage: "Club id (repeatable); omit to search non-club content too",
			},
			&cli.Int64Flag{
				Name:  "member",
				Usage: "Acting member id",
			},
			&cli.Int64SliceFlag{
				Name:  "group",
				Usage: "Acting member's group id (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "unread",
				Usage: "Only content the acting member has not read",
			},
			&cli.BoolFlag{
				Name:  "posted-in",
				Usage: "Only items the acting member posted in",
			},
			&cli.StringFlag{
				Name:  "order",
				Usage: "Ordering: updated, -updated, created, -created, commented, relevancy",
				Value: "updated",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Result page",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per page",
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Only content updated in the last N days",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runSearch(ctx, c)
		},
	}
}

func runSearch(ctx context.Context, c *cli.Command) error {
	if c.Bool("debug") {
		log.SetGlobalDebug(true)
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.DSN == "" {
		return fmt.Errorf("no dsn configured; set dsn in the config file")
	}

	db, err := storage.Open(cfg.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Printf("Warning: failed to close database: %v\n", err)
		}
	}()

	registry, err := index.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("building content type registry: %w", err)
	}

	engine := query.NewEngine(
		db, registry, cfg,
		storage.NewFollows(db),
		storage.NewMarkers(db, cfg.ItemMarkerLimit),
		storage.NewActivity(db),
	)

	member := &index.Member{
		ID:     c.Int64("member"),
		Groups: c.Int64Slice("group"),
	}

	q := engine.NewQuery(member)

	if classes := c.StringSlice("class"); len(classes) > 0 {
		filter := query.ContentFilter{}
		for _, class := range classes {
			filter.Classes = append(filter.Classes, index.Class(class))
		}
		q.FilterByContent([]query.ContentFilter{filter}, true)
	}
	if authors := c.Int64Slice("author"); len(authors) > 0 {
		q.FilterByAuthor(authors...)
	}
	if clubs := c.Int64Slice("club"); len(clubs) > 0 {
		q.FilterByClub(clubs...)
	}
	if days := c.Int("days"); days > 0 {
		start := time.Now().AddDate(0, 0, -days)
		q.FilterByLastUpdatedDate(&start, nil)
	}
	if c.Bool("unread") {
		q.FilterByUnread(ctx)
	}
	if c.Bool("posted-in") {
		q.FilterByItemsIPostedIn()
	}

	order, err := parseOrder(c.String("order"))
	if err != nil {
		return err
	}
	q.SetOrder(order).SetPage(c.Int("page"))
	if limit := c.Int("limit"); limit > 0 {
		q.SetLimit(limit)
	}

	method, err := parseMethod(c.String("method"))
	if err != nil {
		return err
	}

	results, err := q.Search(ctx, c.String("query"), c.StringSlice("tag"), method, "+")
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	fmt.Print(renderResults(results))
	return nil
}

func parseOrder(s string) (query.Order, error) {
	switch strings.ToLower(s) {
	case "updated", "":
		return query.OrderNewestUpdated, nil
	case "-updated":
		return query.OrderOldestUpdated, nil
	case "created":
		return query.OrderNewestCreated, nil
	case "-created":
		return query.OrderOldestCreated, nil
	case "commented":
		return query.OrderNewestCommented, nil
	case "relevancy":
		return query.OrderRelevancy, nil
	}
	return 0, fmt.Errorf("unknown order %q", s)
}

func parseMethod(s string) (query.Method, error) {
	switch strings.ToLower(s) {
	case "term":
		return query.MethodTerm, nil
	case "tags":
		return query.MethodTags, nil
	case "or", "":
		return query.MethodTermOrTags, nil
	case "and":
		return query.MethodTermAndTags, nil
	}
	return 0, fmt.Errorf("unknown method %q", s)
}
