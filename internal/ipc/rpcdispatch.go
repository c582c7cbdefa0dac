package ipc

import "pikernel/internal/rpcwire"

// SendRPCRequest addresses target with a named rpcwire.Tag instead of
// a raw uint32, the only path VFS/mount-server callers use so the
// wire tag namespace never surfaces as a magic number at a send site.
func (b *Bus) SendRPCRequest(sender, target PID, tag rpcwire.Tag, body []byte) MessageID {
	return b.SendByPID(sender, target, uint32(tag), body)
}

// ReceiveRPCRequest pops the next message queued for pid and
// classifies its TypeTag against the RPC wire tag table, switching on
// the named Go constant rather than comparing the raw integer. ok is
// false both when no message is queued and when a queued message's
// tag is not a recognized RPC operation.
func (b *Bus) ReceiveRPCRequest(pid PID) (Message, rpcwire.Tag, bool) {
	msg, ok := b.Receive(pid, nil)
	if !ok {
		return Message{}, 0, false
	}
	tag, known := classifyTag(msg.TypeTag)
	return msg, tag, known
}

func classifyTag(raw uint32) (rpcwire.Tag, bool) {
	tag := rpcwire.Tag(raw)
	switch tag {
	case rpcwire.TagAdd, rpcwire.TagOpen, rpcwire.TagClose, rpcwire.TagRead,
		rpcwire.TagWrite, rpcwire.TagSeek, rpcwire.TagStat, rpcwire.TagMount,
		rpcwire.TagUmount, rpcwire.TagRegisterWatch, rpcwire.TagRegisterHandler,
		rpcwire.TagIoctl, rpcwire.TagProbe:
		return tag, true
	default:
		return 0, false
	}
}
