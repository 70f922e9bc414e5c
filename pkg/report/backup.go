package report

import "imgurstats/pkg/store"

// BackupPosts keeps the current summary so the next summary can show deltas.
func BackupPosts(st *store.Store, scope string) {
	st.Copy(scope, store.KeySummaryPosts, store.KeyPriorSummaryPosts)
}

// BackupImages keeps the current top list and its date so the next top list
// can show rank movement.
func BackupImages(st *store.Store, scope string) {
	st.Copy(scope, store.KeyTopViews, store.KeyPriorTopViews)
	st.Copy(scope, store.KeyLastModImages, store.KeyPriorTopViewsMod)
}
