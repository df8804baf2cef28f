package tui

import (
	"fmt"
	"strings"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/demo"
)

// counterDisplay shows the counter and the user's name. It selects the counter
// together with the user value, so it re-renders when the counter changes or
// when any user field changes, the age included.
type counterDisplay struct {
	counter  int
	userName string
	renders  int
}

func (c *counterDisplay) subscribe(store *demo.Store) ministore.Unsubscribe {
	c.render(store.GetState())
	return ministore.SubscribeSelect(store, c.render, demo.SelectCounterAndUser,
		ministore.WithSubscriptionName("counter-display"))
}

func (c *counterDisplay) render(s demo.AppState) {
	c.counter = s.Counter
	c.userName = demo.SelectUserName(s)
	c.renders++
}

func (c *counterDisplay) view() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Counter Display") + "\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", c.counter)) + "\n")
	b.WriteString("User: " + c.userName + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("renders: %d", c.renders)))
	return cardStyle.Render(b.String())
}

// userDisplay shows the user profile. Counter changes do not re-render it.
type userDisplay struct {
	name    string
	age     int
	renders int
}

func (u *userDisplay) subscribe(store *demo.Store) ministore.Unsubscribe {
	u.render(store.GetState())
	return ministore.SubscribeSelect(store, u.render, demo.SelectUser,
		ministore.WithSubscriptionName("user-display"))
}

func (u *userDisplay) render(s demo.AppState) {
	if s.User != nil {
		u.name = s.User.Name
		u.age = s.User.Age
	}
	u.renders++
}

func (u *userDisplay) view() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("User Display") + "\n")
	b.WriteString(valueStyle.Render(u.name) + "\n")
	b.WriteString(fmt.Sprintf("Age: %d", u.age) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("renders: %d", u.renders)))
	return cardStyle.Render(b.String())
}

// controlsView renders the dispatch-only controls. They hold no
// subscription, so they never re-render on state changes.
func controlsView(title string, lines ...string) string {
	body := headingStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	return cardStyle.Render(body)
}
