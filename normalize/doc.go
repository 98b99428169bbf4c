// Package normalize cleans and repairs malformed label HTML into a canonical,
// restricted tag vocabulary.
//
// Normalization runs in four passes:
//
//   - repair: a tokenizer pass wraps orphaned tr, td/th and li elements in
//     synthetic table, tr and ul ancestors and balances unclosed tags
//   - parse: the repaired markup is parsed as a body fragment
//   - clean: scripts, styles, superscripts and comments are removed, attributes
//     cleared, links replaced by their text, structural containers unwrapped,
//     and effectively-empty elements deleted
//   - text: the rendered markup loses non-ASCII characters and has its
//     whitespace collapsed
//
// Normalize never fails. If parsing or rendering errors, a regex tag strip
// produces a plain-text result instead.
package normalize
