// Package sources provides story content for a run.
//
// A Source lists and fetches stories: LocalDir reads synced folders (an
// article.txt plus its images), StoreSource reads the document store.
// The sync stage pulls each story into the run state and validates the
// material before any provider is called: a story without readable text
// or at least one decodable image fails validation, not narration.
package sources
