package workspace

// SetRemover replaces the removal function, for fault injection in tests.
func (w *Workspace) SetRemover(fn func(string) error) { w.remove = fn }
