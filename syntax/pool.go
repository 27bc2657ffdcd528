package syntax

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

var ErrPoolClosed = errors.New("parser pool closed")

// Parser turns source bytes into a Tree. A Parser is not safe for
// concurrent use; share it through a Pool. previous may be nil and is a
// hint only, the result must not depend on it.
type Parser interface {
	Parse(ctx context.Context, src []byte, previous *Tree) (*Tree, error)
	Close()
}

type Factory func() (Parser, error)

// Pool hands out exclusive access to a fixed set of parsers.
type Pool struct {
	pool    chan Parser
	parsers []Parser
	done    chan struct{}
	once    sync.Once
}

func NewPool(size int, factory Factory) (*Pool, error) {
	if size < 1 {
		size = 1
	}

	pp := &Pool{
		pool: make(chan Parser, size),
		done: make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		parser, err := factory()

		if err != nil {
			pp.closeParsers()
			return nil, fmt.Errorf("failed to create parser: %w", err)
		}

		pp.parsers = append(pp.parsers, parser)
		pp.pool <- parser
	}

	return pp, nil
}

// Acquire blocks until a parser is free, ctx is done or the pool closes.
func (pp *Pool) Acquire(ctx context.Context) (Parser, error) {
	select {
	case <-pp.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case parser := <-pp.pool:
		return parser, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pp.done:
		return nil, ErrPoolClosed
	}
}

func (pp *Pool) Release(parser Parser) {
	pp.pool <- parser
}

// Parse runs one parse on a pooled parser.
func (pp *Pool) Parse(ctx context.Context, src []byte, previous *Tree) (tree *Tree, err error) {
	parser, err := pp.Acquire(ctx)

	if err != nil {
		return nil, err
	}

	defer pp.Release(parser)

	return parser.Parse(ctx, src, previous)
}

func (pp *Pool) Size() int {
	return cap(pp.pool)
}

// Close waits for every parser to be returned and frees them.
func (pp *Pool) Close() (err error) {
	pp.once.Do(func() {
		close(pp.done)

		for range pp.parsers {
			<-pp.pool
		}

		err = pp.closeParsers()
	})

	return
}

func (pp *Pool) closeParsers() (err error) {
	for _, parser := range pp.parsers {
		err = multierr.Append(err, closeParser(parser))
	}

	pp.parsers = nil

	return
}

func closeParser(parser Parser) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("closing parser: %v", r)
		}
	}()

	parser.Close()

	return nil
}
