package redis

// Redis key naming conventions for checkpoint data. All keys are prefixed
// to avoid collisions; the default prefix is "hitl:".

// checkpointKey returns the hash holding a thread's checkpoint:
// hitl:checkpoint:{threadID}
func (c *Checkpointer) checkpointKey(threadID string) string {
	return c.prefix + "checkpoint:" + threadID
}

// threadIDsKey is the Set tracking all thread IDs for enumeration.
func (c *Checkpointer) threadIDsKey() string {
	return c.prefix + "thread_ids"
}
