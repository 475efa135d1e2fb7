package replication

import "github.com/panunburn/kv/lib/protocol"

// IParticipantListener observes the protocol events a replica handles.
// Callbacks run under the replica's lock and must not call back into it.
type IParticipantListener interface {
	OnAdd(addr protocol.Address)
	OnRemove(addr protocol.Address)
	OnValidate(tx protocol.Transaction, vote bool)
	OnCommit(tx protocol.Transaction)
	OnAbort(tx protocol.Transaction)
	OnShutdown()
}

// LoggingListener logs every event.
type LoggingListener struct{}

func (LoggingListener) OnAdd(addr protocol.Address)    { Logger.Infof("%s joined", addr) }
func (LoggingListener) OnRemove(addr protocol.Address) { Logger.Infof("%s left", addr) }
func (LoggingListener) OnValidate(tx protocol.Transaction, vote bool) {
	Logger.Debugf("%s: vote %t", tx, vote)
}
func (LoggingListener) OnCommit(tx protocol.Transaction) { Logger.Debugf("%s: committed", tx) }
func (LoggingListener) OnAbort(tx protocol.Transaction)  { Logger.Infof("%s: aborted", tx) }
func (LoggingListener) OnShutdown()                      { Logger.Infof("shutdown requested by coordinator") }

// ShutdownListener logs every event like LoggingListener and calls stop
// when the coordinator requests a shutdown. stop runs on its own goroutine.
type ShutdownListener struct {
	LoggingListener
	Stop func()
}

func (l ShutdownListener) OnShutdown() {
	l.LoggingListener.OnShutdown()
	if l.Stop != nil {
		go l.Stop()
	}
}
