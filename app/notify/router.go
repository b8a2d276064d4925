package notify

import "github.com/lysyi3m/landing-comb/app/catalog"

// Router maps post categories to notification topics. Topic order follows configuration.
type Router struct {
	topics  []string
	members map[string]map[string]bool
}

func NewRouter(topics []catalog.Topic) *Router {
	r := &Router{members: make(map[string]map[string]bool)}
	for _, topic := range topics {
		if !topic.Enabled {
			continue
		}
		set := make(map[string]bool, len(topic.Categories))
		for _, name := range topic.Categories {
			set[name] = true
		}
		r.topics = append(r.topics, topic.ID)
		r.members[topic.ID] = set
	}
	return r
}

// Match returns the enabled topics with at least one category in common with categories.
// Category names are compared exactly.
func (r *Router) Match(categories []string) []string {
	var matched []string
	for _, topic := range r.topics {
		set := r.members[topic]
		for _, name := range categories {
			if set[name] {
				matched = append(matched, topic)
				break
			}
		}
	}
	return matched
}
