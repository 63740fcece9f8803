package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

const topicKey = "topic"

// topicSet is the set of enabled debug topics; the "all" entry enables
// every topic.
type topicSet map[string]bool

func parseTopics(verbose bool, list string) topicSet {
	set := topicSet{}
	if verbose {
		set["all"] = true
	}
	for _, t := range strings.Split(list, ",") {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = true
		}
	}
	return set
}

func (s topicSet) allows(topic string) bool {
	return topic == "" || s["all"] || s[topic]
}

// topicFilter drops records tagged with a topic that is not enabled.
// Untagged records (warnings and errors) always reach next.
type topicFilter struct {
	next   slog.Handler
	topics topicSet
	// bound is the topic attached through Logger.With, if any.
	bound string
}

func newTopicFilter(next slog.Handler, topics topicSet) *topicFilter {
	return &topicFilter{next: next, topics: topics}
}

func (h *topicFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *topicFilter) Handle(ctx context.Context, r slog.Record) error {
	if !h.topics.allows(h.topicOf(r)) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *topicFilter) topicOf(r slog.Record) string {
	if h.bound != "" {
		return h.bound
	}
	var topic string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != topicKey {
			return true
		}
		topic = a.Value.String()
		return false
	})
	return topic
}

func (h *topicFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *h
	child.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == topicKey {
			child.bound = a.Value.String()
		}
	}
	return &child
}

func (h *topicFilter) WithGroup(name string) slog.Handler {
	child := *h
	child.next = h.next.WithGroup(name)
	return &child
}

// newLogger returns a text logger on w. verbose enables every topic;
// topicList is a comma-separated subset of reader,store,metrics,export,gui.
func newLogger(w io.Writer, verbose bool, topicList string) *slog.Logger {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(newTopicFilter(text, parseTopics(verbose, topicList)))
}
