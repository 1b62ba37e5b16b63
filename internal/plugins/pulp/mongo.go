package pulp

import (
	"fmt"

	"github.com/alessio/shellescape"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
)

const (
	mongoClient   = "mongo"
	mongoDatabase = "pulp_database"

	// DefaultTaskBatch is the default shellBatchSize for task queries.
	DefaultTaskBatch = 200
)

// Query payloads are handed to "mongo --eval" inside a bash -c wrapper, so
// they carry their own double quotes and escape what bash would expand.
const (
	taskStatusQuery = `"DBQuery.shellBatchSize=%d;; ` +
		`db.task_status.find().sort({finish_time: -1})` +
		`.pretty().shellPrint()"`

	reservedResourcesQuery = `"DBQuery.shellBatchSize=%d;; ` +
		`db.reserved_resources.find().pretty().shellPrint()"`

	runningTasksQuery = `"DBQuery.shellBatchSize=%d;; ` +
		`db.task_status.find({state:{\$ne: \"finished\"}}).pretty()` +
		`.shellPrint()"`

	// Prints collection sizes, biggest first, in human readable units.
	collectionSizesQuery = `"function humanReadable(bytes) {` +
		`  var i = -1;` +
		`  var byteUnits = ['kB', 'MB', 'GB', 'TB', 'PB', ` +
		`                   'EB', 'ZB', 'YB'];` +
		`  do {` +
		`      bytes = bytes / 1024;` +
		`      i++;` +
		`  } while (bytes > 1024);` +
		`  return Math.max(bytes, 0.1).toFixed(1) + ' ' + byteUnits[i];` +
		`};` +
		`var collectionNames = db.getCollectionNames(), stats = [];` +
		`collectionNames.forEach(function (n) {` +
		`                          stats.push(db[n].stats());` +
		`                        });` +
		`stats = stats.sort(function(a, b) {` +
		`                     return b['size'] - a['size']; });` +
		`for (var c in stats) {` +
		`  print(stats[c]['ns'] + ': ' +` +
		`        humanReadable(stats[c]['size']) + ' (' +` +
		`        humanReadable(stats[c]['storageSize']) + ')'); }"`

	dbStatsQuery = `"db.stats()"`
)

// BuildMongoCmd wraps a mongo --eval invocation in "bash -c", quoting the
// whole client command line as a single shell word.
func BuildMongoCmd(p ConnectionParams, query string) string {
	conn := fmt.Sprintf("--host %s --port %s %s %s", p.Host, p.Port, p.UserFlag, p.PasswordFlag)
	client := fmt.Sprintf("%s %s %s --eval %s", mongoClient, mongoDatabase, conn, query)
	return "bash -c " + shellescape.Quote(client)
}

// DiagnosticCommands returns the five database queries in collection order.
// batchSize limits the task and reserved resource listings; values below one
// fall back to DefaultTaskBatch.
func DiagnosticCommands(p ConnectionParams, batchSize int) []core.Command {
	if batchSize < 1 {
		batchSize = DefaultTaskBatch
	}

	return []core.Command{
		{
			Cmd:             BuildMongoCmd(p, fmt.Sprintf(taskStatusQuery, batchSize)),
			SuggestFilename: "mongo-task_status",
		},
		{
			Cmd:             BuildMongoCmd(p, fmt.Sprintf(reservedResourcesQuery, batchSize)),
			SuggestFilename: "mongo-reserved_resources",
		},
		{
			Cmd:             BuildMongoCmd(p, fmt.Sprintf(runningTasksQuery, batchSize)),
			SuggestFilename: "pulp-running_tasks",
		},
		{
			Cmd:             BuildMongoCmd(p, collectionSizesQuery),
			SuggestFilename: "mongo-collection_sizes",
		},
		{
			Cmd:             BuildMongoCmd(p, dbStatsQuery),
			SuggestFilename: "mongo-db_stats",
		},
	}
}
