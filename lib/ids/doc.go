// Package ids provides the source of ever-increasing integers used to mint
// unique consensus proposal ids.
//
// The persistent source writes every issued value to a bbolt file before
// returning it, so a restarted source never hands out a value twice.
package ids
