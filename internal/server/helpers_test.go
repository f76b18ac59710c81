package server

import "github.com/pcstyle/termsim/internal/reveal"

func revealState(text string, revealed int, cursor bool) reveal.State {
	return reveal.State{SourceText: text, Revealed: revealed, CursorVisible: cursor}
}
