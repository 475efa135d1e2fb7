package replication

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/panunburn/kv/lib/protocol"
	"time"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see replication.ICoordinator)
// --------------------------------------------------------------------------

func (c *Coordinator) Broadcast(cmd protocol.Command) (protocol.Result, error) {
	if err := cmd.Validate(); err != nil {
		return protocol.Result{}, err
	}
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.waitForServicesLocked()
	if c.closed {
		return protocol.Result{}, ErrShuttingDown
	}

	tx := protocol.Transaction{ID: uuid.NewString(), Command: cmd}

	// voting
	commit := c.readset.Validate(cmd)
	if !commit {
		Logger.Infof("%s: voted no locally", tx)
	}
	var yes []protocol.Address
	unresponsive := make(map[protocol.Address]struct{})
	for _, addr := range c.state.Members() {
		vote, err := c.state.Directory[addr].Validate(tx)
		switch {
		case err != nil:
			Logger.Warningf("%s: %s did not vote: %v", tx, addr, err)
			unresponsive[addr] = struct{}{}
		case vote:
			yes = append(yes, addr)
		default:
			Logger.Infof("%s: %s voted no", tx, addr)
			commit = false
		}
	}
	c.excludeLocked(unresponsive)

	if !commit {
		unresponsive = make(map[protocol.Address]struct{})
		for _, addr := range yes {
			r, ok := c.state.Directory[addr]
			if !ok {
				continue
			}
			if err := r.Abort(tx); err != nil {
				Logger.Warningf("%s: failed to abort on %s: %v", tx, addr, err)
				unresponsive[addr] = struct{}{}
			}
		}
		c.excludeLocked(unresponsive)
		BroadcastsTotal.WithLabelValues("abort").Inc()
		BroadcastDuration.Observe(time.Since(start).Seconds())
		return protocol.Result{}, fmt.Errorf("%w: %s", ErrTransactionAbort, tx)
	}

	// commit
	unresponsive = make(map[protocol.Address]struct{})
	for _, addr := range c.state.Members() {
		if err := c.state.Directory[addr].Commit(tx); err != nil {
			Logger.Warningf("%s: failed to commit on %s: %v", tx, addr, err)
			unresponsive[addr] = struct{}{}
		}
	}
	c.excludeLocked(unresponsive)
	result := apply(c.state, cmd)

	if !c.workers.Submit(fmt.Sprintf("log append of %s", tx), func(ctx context.Context) error {
		return c.appendToLog(ctx, tx)
	}) {
		Logger.Warningf("%s: not appended to the log, background work is stopped", tx)
	}

	BroadcastsTotal.WithLabelValues("commit").Inc()
	BroadcastDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// --------------------------------------------------------------------------
// Log Append
// --------------------------------------------------------------------------

// appendToLog proposes tx in the next free round until it wins a round.
func (c *Coordinator) appendToLog(ctx context.Context, tx protocol.Transaction) error {
	round := c.state.Log.NextRound()
	for {
		won, err := c.propose(ctx, round, tx)
		switch {
		case err == nil && won:
			LogRoundsTotal.WithLabelValues("won").Inc()
			Logger.Debugf("%s: appended in round %d", tx, round)
			return nil
		case err == nil:
			LogRoundsTotal.WithLabelValues("lost").Inc()
			round++
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("round %d abandoned: %w", round, err)
		default:
			LogRoundsTotal.WithLabelValues("failed").Inc()
			Logger.Debugf("%s: round %d failed, retrying: %v", tx, round, err)
		}
	}
}

// propose runs one round as proposer under the coordinator's lock.
func (c *Coordinator) propose(ctx context.Context, round int64, tx protocol.Transaction) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waitForServicesLocked()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.proposer.Propose(ctx, round, tx)
}
