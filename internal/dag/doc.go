// Package dag accumulates task dependencies and sorts them into levels. A
// level holds every task whose dependencies all sit in earlier levels; tasks
// within a level keep the order in which they were first declared.
package dag
