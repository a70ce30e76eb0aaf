package monitorbuf

import (
	"iter"

	"github.com/go-logr/logr"

	"github.com/fukaraca/monitorbuf/internal/logging"
)

// Producer pushes every value of its sequence, in order, wrapped as Item{ID, value}.
// It knows nothing about consumers or sentinels.
type Producer[V any] struct {
	ID     int
	Values iter.Seq[V]

	logger  logr.Logger
	metrics *Metrics
}

// Run pushes the whole sequence and returns how many items were pushed.
func (p *Producer[V]) Run(buf *Buffer[V]) int {
	logger := p.logger.WithValues("producer", p.ID)
	logger.V(logging.VERBOSE).Info("Producer started")

	pushed := 0
	for v := range p.Values {
		buf.Push(Item[V]{ProducerID: p.ID, Value: v})
		pushed++
		if p.metrics != nil {
			p.metrics.recordPushed()
		}
		logger.V(logging.TRACE).Info("Produced item", "value", v)
	}

	logger.V(logging.VERBOSE).Info("Producer finished", "pushed", pushed)
	return pushed
}

// ConsumerReport summarizes one consumer's lifetime.
type ConsumerReport struct {
	ID        int
	Processed int // items handed to the sink, failed ones included
	Failures  int // items the sink returned an error for
	Sentinels int // always 1 for a consumer that terminated normally
}

// Consumer pops until it receives a sentinel, handing every item to Sink.
type Consumer[V any] struct {
	ID   int
	Sink Sink[V]

	logger  logr.Logger
	metrics *Metrics
}

// Run blocks until the consumer pops its sentinel. It never pops again afterwards.
func (c *Consumer[V]) Run(buf *Buffer[V]) ConsumerReport {
	report := ConsumerReport{ID: c.ID}
	c.consume(buf, &report)
	return report
}

// consume updates report as it goes, so the counts up to a panicking Sink call survive.
func (c *Consumer[V]) consume(buf *Buffer[V], report *ConsumerReport) {
	logger := c.logger.WithValues("consumer", c.ID)
	logger.V(logging.VERBOSE).Info("Consumer started")

	for {
		item, ok := buf.Pop()
		if !ok {
			report.Sentinels++
			break
		}
		report.Processed++
		if c.metrics != nil {
			c.metrics.recordProcessed()
		}
		if err := c.Sink.Process(c.ID, item); err != nil {
			report.Failures++
			if c.metrics != nil {
				c.metrics.recordSinkFailure()
			}
			logger.Error(err, "Sink failed to process item", "value", item.Value, "producer", item.ProducerID)
			continue
		}
		logger.V(logging.TRACE).Info("Consumed item", "value", item.Value, "producer", item.ProducerID)
	}

	logger.V(logging.VERBOSE).Info("Consumer finished", "processed", report.Processed, "failures", report.Failures)
}
