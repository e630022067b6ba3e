// Package homefix makes sure $HOME is set before anything reads it. Only
// Windows needs a fix, as it has no HOME by default; importing the package
// elsewhere does nothing.
package homefix
