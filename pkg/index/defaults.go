package index

// DefaultTypes returns descriptors for the built-in community content
// types. Deployments with custom types register their own descriptors
// instead.
func DefaultTypes() []*ContentType {
	return []*ContentType{
		{
			Class:               "forums.Topic",
			CommentClass:        "forums.Post",
			ContainerClass:      "forums.Forum",
			Application:         "forums",
			FollowArea:          "topic",
			ContainerFollowArea: "forum",
			Table:               "forums_topics",
			IDColumn:            "tid",
			CommentCountColumn:  "posts",
			ViewCountColumn:     "views",
			LastCommentColumn:   "last_post",
			Capabilities: Capabilities{
				Taggable:    true,
				Followable:  true,
				ReadMarkers: true,
				Commentable: true,
			},
		},
		{
			Class:               "forums.Post",
			ItemClass:           "forums.Topic",
			ContainerClass:      "forums.Forum",
			Application:         "forums",
			FollowArea:          "topic",
			ContainerFollowArea: "forum",
			Capabilities: Capabilities{
				Taggable:    true,
				Followable:  true,
				ReadMarkers: true,
			},
		},
		{
			Class:               "blog.Entry",
			CommentClass:        "blog.Comment",
			ContainerClass:      "blog.Blog",
			Application:         "blog",
			FollowArea:          "entry",
			ContainerFollowArea: "blog",
			Table:               "blog_entries",
			IDColumn:            "entry_id",
			CommentCountColumn:  "num_comments",
			ViewCountColumn:     "views",
			LastCommentColumn:   "last_comment_date",
			Capabilities: Capabilities{
				Taggable:    true,
				Followable:  true,
				ReadMarkers: true,
				Commentable: true,
			},
		},
		{
			Class:               "blog.Comment",
			ItemClass:           "blog.Entry",
			ContainerClass:      "blog.Blog",
			Application:         "blog",
			FollowArea:          "entry",
			ContainerFollowArea: "blog",
			Capabilities: Capabilities{
				Taggable:    true,
				Followable:  true,
				ReadMarkers: true,
			},
		},
		{
			Class:               "calendar.Event",
			ReviewClass:         "calendar.Review",
			ContainerClass:      "calendar.Calendar",
			Application:         "calendar",
			FollowArea:          "event",
			ContainerFollowArea: "calendar",
			Table:               "calendar_events",
			IDColumn:            "event_id",
			ReviewCountColumn:   "reviews",
			ViewCountColumn:     "views",
			LastReviewColumn:    "last_review",
			Capabilities: Capabilities{
				Taggable:    true,
				Followable:  true,
				ReadMarkers: true,
				Reviewable:  true,
			},
		},
		{
			Class:               "calendar.Review",
			ItemClass:           "calendar.Event",
			ContainerClass:      "calendar.Calendar",
			Application:         "calendar",
			FollowArea:          "event",
			ContainerFollowArea: "calendar",
			Capabilities: Capabilities{
				Followable:  true,
				ReadMarkers: true,
			},
		},
	}
}

// DefaultRegistry builds a registry pre-populated with DefaultTypes.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, ct := range DefaultTypes() {
		if err := r.Register(ct); err != nil {
			return nil, err
		}
	}
	return r, nil
}
