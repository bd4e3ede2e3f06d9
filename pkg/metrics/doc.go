// Package metrics provides Prometheus instrumentation for boundq components.
//
// # Overview
//
// The registry exposes:
//   - Queue state (capacity, depth, finished flag)
//   - Queue traffic (inserts, removes, and how many of each had to wait)
//   - Queue delay, the time a descriptor spent buffered
//   - Task outcomes and execution time, recorded by the supervisor's consumers
//   - Sink failures
//
// # Quick Start
//
//	mq, err := queue.NewWithConfigAndMetrics(10, "jobs", metrics.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	http.Handle("/metrics", promhttp.Handler())
//
// Queues that share a registerer share its collectors and are told apart by
// their queue_name label.
//
// # Available Metrics
//
//   - boundq_queue_capacity
//   - boundq_queue_depth
//   - boundq_queue_inserts_total
//   - boundq_queue_removes_total
//   - boundq_queue_blocked_inserts_total
//   - boundq_queue_blocked_removes_total
//   - boundq_queue_delay_seconds
//   - boundq_queue_finished
//   - boundq_task_executed_total
//   - boundq_task_completed_total
//   - boundq_task_failed_total
//   - boundq_task_duration_seconds
//   - boundq_sink_errors_total
//
// Every vector is labelled with queue_name. Config.Namespace replaces the
// "boundq" prefix and Config.Labels are attached as constant labels.
package metrics
