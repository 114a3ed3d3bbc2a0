// Package events is an in-process publish/subscribe bus for repository
// change notifications.
//
// Filtering belongs to the subscription: a handler only ever sees events on
// its topic that satisfy its Filter. Each subscription has its own delivery
// goroutine, so a slow handler delays only its own queue.
package events
