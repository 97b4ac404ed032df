// Package web serves the recovery, password and login pages on a chi router.
//
// Handlers render through a [Renderer]; the default [JSONRenderer] emits the
// template name and its context so any front end can draw them.
package web
