// Package pkgmgr maps an abstract "install these packages" intent to the
// shell fragment of a concrete system package manager.
//
// A [Manager] is selected once per image specification by name. Fragments
// preserve the caller's package order exactly, duplicates included, and
// chain every command with "&&" so that a failing step fails the whole
// fragment.
//
// Example usage:
//
//	mgr, err := pkgmgr.Lookup(pkgmgr.Apt)
//	if err != nil {
//	    return err
//	}
//
//	fragment := mgr.Install([]string{"git", "vim"})
package pkgmgr
