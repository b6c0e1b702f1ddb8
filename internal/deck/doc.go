// Package deck converts a tabular word list into the JSON card deck the
// flashcard app consumes. Card numbers follow row order so that card n
// lines up with the clips labeled n_word and n_phrase.
package deck
