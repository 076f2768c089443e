package p2p

import (
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/node/log"
)

// Broadcast sends msg to every link concurrently, logging (but not
// failing the whole broadcast on) individual write errors — a single
// wedged peer must never block progress for the others.
func Broadcast(links []*Link, msg Message) {
	var g errgroup.Group
	for _, link := range links {
		link := link
		g.Go(func() error {
			if err := link.Send(msg); err != nil {
				log.Warn("p2p: broadcast to peer failed", "peer", link.PeerAddress, "type", msg.Type, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
