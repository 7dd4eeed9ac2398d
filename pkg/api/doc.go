// Package api exposes the context engine over HTTP for the admin
// backend-for-frontend.
//
// # Routes
//
//	POST /v1/context/establish   install a context from an auth payload
//	POST /v1/context/resume      restore a previously persisted context
//	GET  /v1/context             current context snapshot
//	POST /v1/context/branch      switch the active branch
//	POST /v1/context/company     switch the active company
//	POST /v1/context/clear       tear the context down (logout)
//	GET  /v1/menu                annotated menu tree, with optional filters
//	GET  /v1/permissions/check   single permission check
//
// All responses are JSON. Switch endpoints return 409 when no context is
// established and 403 when the target is outside the user's access.
package api
