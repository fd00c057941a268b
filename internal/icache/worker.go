package icache

import "log/slog"

// runWorker is the single long-running consumer goroutine from spec
// §4.3. It drains the queue, performs dedup lookups, stamps new items,
// appends canonical items to their destinations, and signals barriers.
// Exactly one goroutine ever calls this, started once by New.
func (c *Cache) runWorker() {
	defer close(c.stopped)

	if c.logger != nil {
		c.logger.Debug("icache worker ready")
	}

	for {
		e, ok := c.queue.dequeue()
		if !ok {
			return
		}

		switch e.kind {
		case entryShutdown:
			return
		case entryBarrier:
			close(e.done)
		case entryInsert:
			if err := c.processInsert(e); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

// processInsert implements the three-way outcome of an Insert: true
// miss, hit, or collision-miss.
func (c *Cache) processInsert(e workEntry) error {
	fid := e.item.Fingerprint()

	b, present := c.index.lookup(fid)
	if !present {
		if err := c.index.insertNew(fid, e.item); err != nil {
			c.stats.indexInsertFailures.Add(1)
			if c.logger != nil {
				c.logger.Error("dedup index insert failed, aborting run", "err", err)
			}
			return err
		}
		e.item.SetStamp(mintStamp())
		c.stats.stampsIssued.Add(1)
		return c.appendOrFail(e.dest, e.item)
	}

	for _, candidate := range b.items {
		if e.item.Equal(candidate) {
			c.index.recordHit()
			return c.appendOrFail(e.dest, candidate)
		}
	}

	// Fingerprint collision, unequal content: collision-miss.
	c.index.extend(b, e.item)
	e.item.SetStamp(mintStamp())
	c.stats.stampsIssued.Add(1)
	return c.appendOrFail(e.dest, e.item)
}

func (c *Cache) appendOrFail(dest CollectedObject, item Item) error {
	if err := dest.Append(item); err != nil {
		if c.logger != nil {
			c.logger.Error("collected object append failed, aborting run", "err", err)
		}
		return err
	}
	return nil
}

// fail latches worker-dead and wakes any producer stuck waiting on the
// now-abandoned queue.
func (c *Cache) fail(err error) {
	c.lastErr.Store(&err)
	c.workerDead.Store(true)
	c.queue.abandon()
	if c.logger != nil {
		c.logger.Error("icache worker stopped", slog.Any("err", err))
	}
}
