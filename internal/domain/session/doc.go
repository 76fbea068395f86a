// Package session manages named image viewer sessions.
//
// A session is a viewer state (ordered images, focus, visibility) with a
// name, an optional sync service id and an optional flattened rendering.
//
// Components:
//   - Session: one named viewer state, immutable by convention
//   - Store: the whole collection under one key of a key-value store
//   - API: the authoritative collection, persisted locally or synced remotely
//
// Persistence Modes:
//   - Local: every mutation rewrites the collection through the Store
//   - Remote: every mutation is one request to the sync service; runtime
//     image handles are uploaded first and replaced by served URLs
//
// Stored Record:
//
//	{"name": "...", "activeIndex": 0, "show": false, "id": "...",
//	 "imgs_r": {"dataURLs": [...], "imgStates": [...]}, "flattened_r": null}
//
// Example Usage:
//
//	api, err := session.Open(ctx, session.Options{KV: kv, Logger: logger})
//	s := api.NewSession(images)
//	idx, err := api.Append(ctx, s)
//	s, _ = s.Apply(viewer.MoveTo{Target: 0})
//	err = api.Edit(ctx, idx, s)
package session
