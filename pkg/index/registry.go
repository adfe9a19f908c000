package index

import (
	"fmt"
	"sort"
	"sync"
)

// Class identifies a kind of content, e.g. "forums.Topic" or
// "blog.Comment".
type Class string

// Capabilities describes which engine features a content type
// participates in. The registry caches one descriptor per type so
// filters can answer "does this class support X" without reflection.
type Capabilities struct {
	Taggable    bool
	Followable  bool
	ReadMarkers bool
	Commentable bool
	Reviewable  bool
}

// ContentType describes one registered content class and how the engine
// should treat its rows.
type ContentType struct {
	Class Class

	// ItemClass is the parent item class when this type is a comment or
	// review class, empty for item classes. Comment and review rows
	// share the parent item's container and date semantics.
	ItemClass Class

	// CommentClass and ReviewClass name the child classes of an item
	// class, when it has them.
	CommentClass Class
	ReviewClass  Class

	// ContainerClass is the node type items of this class live in
	// (e.g. "forums.Forum").
	ContainerClass string

	// Application and FollowArea scope follow records for this type.
	// ContainerFollowArea is the area container follows are recorded
	// under.
	Application         string
	FollowArea          string
	ContainerFollowArea string

	// Table is the owning content table, joined only for minimum
	// comment/review/view threshold filters and marker validation.
	// IDColumn is its primary key.
	Table    string
	IDColumn string

	CommentCountColumn string
	ReviewCountColumn  string
	ViewCountColumn    string

	// LastCommentColumn and LastReviewColumn are the best-available
	// last-activity date columns on the owning table, used to validate
	// per-item read markers.
	LastCommentColumn string
	LastReviewColumn  string

	Capabilities Capabilities
}

// IsComment reports whether the type is a comment or review class.
func (ct *ContentType) IsComment() bool {
	return ct.ItemClass != ""
}

// Registry holds the capability descriptors of all registered content
// types. It is populated once at startup and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[Class]*ContentType
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[Class]*ContentType)}
}

// Register adds a content type descriptor. Registering the same class
// twice is a programmer error.
func (r *Registry) Register(ct *ContentType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[ct.Class]; exists {
		return fmt.Errorf("content type %s already registered", ct.Class)
	}
	r.types[ct.Class] = ct
	return nil
}

// Lookup returns the descriptor for a class.
func (r *Registry) Lookup(class Class) (*ContentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[class]
	return ct, ok
}

// Classes returns all registered classes in stable order.
func (r *Registry) Classes() []Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	classes := make([]Class, 0, len(r.types))
	for class := range r.types {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}

// Types returns descriptors for the given classes, skipping unknown
// ones. A nil class list means every registered type.
func (r *Registry) Types(classes []Class) []*ContentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if classes == nil {
		classes = make([]Class, 0, len(r.types))
		for class := range r.types {
			classes = append(classes, class)
		}
		sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	}
	types := make([]*ContentType, 0, len(classes))
	for _, class := range classes {
		if ct, ok := r.types[class]; ok {
			types = append(types, ct)
		}
	}
	return types
}
