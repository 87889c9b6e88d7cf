// Package prompt builds character prompts from a fixed option catalog.
//
// Every field of Options has a closed list of allowed values. Compose
// substitutes the chosen values into Template, Randomize picks one value per
// field, and Validate rejects anything outside the catalog.
package prompt
