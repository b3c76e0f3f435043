// Package lazyscan builds deferred scans over Arrow IPC files.
//
// A scan takes a path (a file, a directory, a glob pattern or an object
// storage URL), expands it into a deterministic list of files, decides
// whether hive partition discovery applies and hands the result to a plan
// builder. The returned plan.LazyFrame holds the scan node; no record
// batches are decoded.
//
// # Quick Start
//
//	lf, err := lazyscan.Scan(ctx, "/data/events", lazyscan.DefaultScanConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(lf.Explain())
//
// # Hive Partitioning
//
// When ScanConfig.Partitioning.Enabled is left at PartitioningAuto,
// discovery is enabled only for a single non-glob input that resolves to
// something other than itself: a local directory, or a remote prefix.
// A literal file and any glob pattern never enable it, even when the glob
// matches one file. An explicit PartitioningOn or PartitioningOff is used
// as given.
//
// Partition columns start at the path component right below the scanned
// directory:
//
//	/data/events/date=2024-01-01/part-0.ipc
//	            ^ component 3
//
// # Planning Service
//
// NewServer registers an Arrow Flight service that plans registered
// datasets (and, optionally, ad-hoc paths) and returns their schema with
// one endpoint per resolved file:
//
//	grpcServer := grpc.NewServer(lazyscan.ServerOptions(config)...)
//	if err := lazyscan.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//
// # Remote Storage
//
// s3:// URLs are listed and probed with the AWS SDK. ScanConfig.Remote
// carries region, endpoint and static credentials; the zero value uses the
// default credential chain.
package lazyscan
