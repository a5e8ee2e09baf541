package osc
