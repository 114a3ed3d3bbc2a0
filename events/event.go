package events

import (
	"maps"
	"time"
)

// Resource change topics.
const (
	TopicResourceAdded   = "org/apache/sling/api/resource/Resource/ADDED"
	TopicResourceChanged = "org/apache/sling/api/resource/Resource/CHANGED"
	TopicResourceRemoved = "org/apache/sling/api/resource/Resource/REMOVED"
)

// Well-known event property keys.
const (
	PropertyPath         = "path"
	PropertyResourceType = "resourceType"
)

// Event is a topic plus a flat property bag.
type Event struct {
	Topic      string
	Properties map[string]any
	Time       time.Time
}

// NewEvent creates an event stamped with the current time.
func NewEvent(topic string, props map[string]any) Event {
	return Event{
		Topic:      topic,
		Properties: maps.Clone(props),
		Time:       time.Now(),
	}
}

// ResourceEvent builds a resource change event for path.
func ResourceEvent(topic, path, resourceType string) Event {
	return NewEvent(topic, map[string]any{
		PropertyPath:         path,
		PropertyResourceType: resourceType,
	})
}

// Property returns a property value.
func (e Event) Property(key string) (any, bool) {
	v, ok := e.Properties[key]
	return v, ok
}

// StringProperty returns a string property, or "".
func (e Event) StringProperty(key string) string {
	s, _ := e.Properties[key].(string)
	return s
}

// Filter decides whether a subscription receives an event.
type Filter func(Event) bool

// MatchAll accepts every event.
func MatchAll(Event) bool { return true }

// PropertyEquals accepts events whose property key equals value.
func PropertyEquals(key string, value any) Filter {
	return func(e Event) bool {
		v, ok := e.Properties[key]
		return ok && v == value
	}
}

// AllOf accepts events accepted by every filter.
func AllOf(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if f != nil && !f(e) {
				return false
			}
		}
		return true
	}
}
