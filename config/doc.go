/*
Copyright 2017-2020, Square, Inc.

Package config provides the ability to load config files into predefined
structures. The Resolver struct holds everything needed to turn job documents
on disk into checked, resolved jobs: where the documents live, the
batch-artifacts document, the log level, and values for systemProperties and
jobParameters expressions.

An example config file:

	---
	job_dirs:
	  - /etc/batch/jobs
	  - /opt/app/jobs
	artifacts_file: /opt/app/META-INF/batch.xml
	log_level: warn
	system_properties:
	  data.dir: /var/data
	job_parameters:
	  env: prod
*/
package config
