/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package cpu

import (
	"github.com/andreas-jonsson/i8088-core/emulator/memory"
)

const maxQueueSize = 6

type prefetchQueue struct {
	queue     [maxQueueSize]byte
	queueLen  int
	queueSize int

	// Address of the next byte the BIU will fetch.
	queueIP uint16

	// Cycles banked towards the next bus transfer, 0-3.
	biuCycles int

	// Cleared between a flush and the new IP being loaded.
	fetching bool
}

// addCycles lets the BIU use idle cycles. Every four cycles complete one
// bus transfer.
func (p *CPU) addCycles(n int, fill bool) {
	if n <= 0 || p.queueLen >= p.queueSize {
		return
	}

	d := n + p.biuCycles
	p.biuCycles = d & 3
	d >>= 2

	if !fill || !p.fetching {
		return
	}
	for ; d > 0 && p.queueLen < p.queueSize; d-- {
		p.queueWrite()
	}
}

func (p *CPU) queueWrite() {
	if p.variant.WideBus() && p.queueIP&1 == 0 && p.queueLen <= p.queueSize-2 {
		v := p.ReadWord(memory.NewPointer(p.CS, p.queueIP))
		p.queue[p.queueLen] = byte(v)
		p.queue[p.queueLen+1] = byte(v >> 8)
		p.queueLen += 2
		p.queueIP += 2
		return
	}

	p.queue[p.queueLen] = p.ReadByte(memory.NewPointer(p.CS, p.queueIP))
	p.queueLen++
	p.queueIP++
}

func (p *CPU) fetchCommon() byte {
	if p.queueLen == 0 {
		p.queueIP = p.IP
		p.fetching = true
		p.wait(4-p.biuCycles, false)
	}

	v := p.queue[0]
	copy(p.queue[:], p.queue[1:p.queueLen])
	p.queueLen--
	p.IP++
	return v
}

func (p *CPU) fetchByte() byte {
	v := p.fetchCommon()
	p.wait(1, false)
	return v
}

func (p *CPU) fetchWord() uint16 {
	v := uint16(p.fetchCommon())
	p.wait(1, false)
	return v | uint16(p.fetchCommon())<<8
}

func (p *CPU) fetch(wide bool) uint16 {
	if wide {
		return p.fetchWord()
	}
	return uint16(p.fetchByte())
}

// clearQueue flushes the queue and stops prefetching until a new IP is loaded.
func (p *CPU) clearQueue() {
	p.queueLen = 0
	p.queueIP = p.IP
	p.fetching = false
}

func (p *CPU) setIP(ip uint16) {
	p.IP = ip
	p.queueLen = 0
	p.queueIP = ip
	p.fetching = true
}

func (p *CPU) QueueLen() int {
	return p.queueLen
}

func (p *CPU) QueueCapacity() int {
	return p.queueSize
}
