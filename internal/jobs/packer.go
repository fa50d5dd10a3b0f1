// Package jobs turns settings changes and operator commands into device jobs
// and tracks them until the device answers or the schedule gives up on them.
package jobs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/job"
	"waste-fleet-monitor/pkg/codec"
)

// ErrPayloadOverflow means a single pair does not fit into an empty job.
var ErrPayloadOverflow = errors.New("job payload limit exceeded")

// Draft is a job payload under construction. Existing drafts wrap a pending
// job loaded from storage.
type Draft struct {
	JobID   uuid.UUID
	Message codec.Message
	Changed bool
}

// IsNew reports whether the draft has no stored job yet.
func (d *Draft) IsNew() bool {
	return d.JobID == uuid.Nil
}

// Payload serializes the draft.
func (d *Draft) Payload() string {
	return codec.Serialize(d.Message)
}

// Packer fits key/value pairs into as few payloads as the limit allows.
type Packer struct {
	limit    int
	existing []*Draft
	created  []*Draft
}

// NewPacker starts from the pending jobs of one device, newest first.
// Jobs that cannot be decoded are left untouched.
func NewPacker(limit int, pending []*job.Job) *Packer {
	p := &Packer{limit: limit}
	for _, j := range pending {
		msg, err := codec.Parse(j.Payload)
		if err != nil {
			continue
		}
		p.existing = append(p.existing, &Draft{JobID: j.ID, Message: msg})
	}
	return p
}

// cost is the length a pair adds to msg.
func cost(msg codec.Message, key, value string) int {
	n := codec.PairLength(key, value)
	if len(msg) == 0 {
		n--
	}
	return n
}

func (p *Packer) fits(d *Draft, key, value string) bool {
	return d.Message.Length()+cost(d.Message, key, value) <= p.limit
}

// Put places key=value. A draft already carrying the key is updated in
// place when the length delta fits; otherwise the key is evicted from it
// and placed like a new pair.
func (p *Packer) Put(key, value string) error {
	if cost(nil, key, value) > p.limit {
		return fmt.Errorf("%w: %q needs %d of %d characters", ErrPayloadOverflow, key, cost(nil, key, value), p.limit)
	}

	for _, d := range p.existing {
		current, ok := d.Message.Get(key)
		if !ok {
			continue
		}
		if current == value {
			return nil
		}
		delta := codec.PairLength(key, value) - codec.PairLength(key, current)
		if d.Message.Length()+delta <= p.limit {
			d.Message = d.Message.Set(key, value)
			d.Changed = true
			return nil
		}
		d.Message = d.Message.Delete(key)
		d.Changed = true
		break
	}

	for _, d := range p.existing {
		if p.fits(d, key, value) {
			d.Message = d.Message.Set(key, value)
			d.Changed = true
			return nil
		}
	}

	if n := len(p.created); n > 0 && p.fits(p.created[n-1], key, value) {
		last := p.created[n-1]
		last.Message = last.Message.Set(key, value)
		return nil
	}

	p.created = append(p.created, &Draft{Message: codec.Message{{Key: key, Value: value}}, Changed: true})
	return nil
}

// Changed returns the stored drafts whose payload must be rewritten.
func (p *Packer) Changed() []*Draft {
	var out []*Draft
	for _, d := range p.existing {
		if d.Changed && len(d.Message) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Emptied returns the stored drafts that lost every pair to eviction.
func (p *Packer) Emptied() []*Draft {
	var out []*Draft
	for _, d := range p.existing {
		if d.Changed && len(d.Message) == 0 {
			out = append(out, d)
		}
	}
	return out
}

// Created returns the drafts that need a new job.
func (p *Packer) Created() []*Draft {
	return p.created
}
