// Command conveyor is the pipeline console client. It manages stored
// pipeline configurations on the conveyor daemon, starts and controls
// executions, and follows live step progress over the update stream.
package main
