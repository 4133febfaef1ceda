/*
Package core is the backend-agnostic DOM query layer of pincers.

A Backend supplies raw document access: searching, reading, mutating and
navigating. The core wraps it in immutable Contexts. The root Context stands
for the whole document and re-reads the backend's document root every time it
is used, so it follows navigation and frame switches. Every query returns a
new search Context that remembers its parent:

	root := core.NewRootContext(backend)
	bikes := root.CSS("ul.bikes li")
	first, err := bikes.Text()   // text of the first match
	all, err := bikes.HTML()     // HTML of every match, concatenated

Query failures are kept on the returned Context and reported by the first
accessor that needs elements, so chains read left to right and still never
lose a backend error. Err reports it directly.

A Context and its Backend belong to a single caller. Contexts can be kept and
reused as plain values, but backends are not safe for concurrent use.
*/
package core
