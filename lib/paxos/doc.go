/*
Package paxos implements a multi-round Paxos consensus engine generic over the
agreed value type.

Each round is an independent single-decree instance. An Engine is the acceptor
and learner of one node; a Proposer drives a round across a set of acceptors.

Acceptor rules for a round R:

  - Prepare(R, id): the first prepare for R creates the record and promises id.
    A later prepare is promised only if id is greater than the highest promise
    so far. The promise carries the proposal accepted for R, if any.
  - Accept(R, p): accepted only if p.ID equals the highest promised id for R.
    Accepting for a round that was never prepared is a protocol error.
  - Learn(R, v): informational, records the learned value.

Declines are reported as ErrRejected. An injected failure, which the caller
cannot tell apart from a dead node, is reported as ErrUnavailable. Proposers
treat both the same way and retry with a fresh proposal id.

Failure injection is pluggable through IFailureInjector and is disabled with
NoFailures().
*/
package paxos
